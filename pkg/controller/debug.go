package controller

import (
	"net/http"
	"net/http/pprof"
	"net/netip"
)

// PprofPrefix is where DebugHandler serves the runtime profiles.
const PprofPrefix = "/debug/pprof/"

// DebugHandler serves net/http/pprof under PprofPrefix. Profiles expose
// process internals, so unless allowRemote is set only clients connecting
// from a loopback address are served; forwarding headers are not trusted for
// this check.
func DebugHandler(allowRemote bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(PprofPrefix, pprof.Index)
	mux.HandleFunc(PprofPrefix+"cmdline", pprof.Cmdline)
	mux.HandleFunc(PprofPrefix+"profile", pprof.Profile)
	mux.HandleFunc(PprofPrefix+"symbol", pprof.Symbol)
	mux.HandleFunc(PprofPrefix+"trace", pprof.Trace)

	if allowRemote {
		return mux
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr, err := netip.ParseAddr(remoteHost(r))
		if err != nil || !addr.IsLoopback() {
			http.Error(w, "profiles are only served to local clients", http.StatusForbidden)

			return
		}
		mux.ServeHTTP(w, r)
	})
}
