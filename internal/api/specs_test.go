package api_test

import (
	"librarian/internal/api/handler/v1handler"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type openAPIDocument struct {
	Servers []struct {
		URL string `yaml:"url"`
	} `yaml:"servers"`
	Paths map[string]map[string]yaml.Node `yaml:"paths"`
}

var documentedMethods = map[string]bool{ //nolint: gochecknoglobals
	"get": true, "post": true, "put": true, "patch": true, "delete": true,
}

func TestV1Spec_DocumentsEveryRoute(t *testing.T) {
	data, err := os.ReadFile("specs/v1.yaml")
	require.NoError(t, err)

	var doc openAPIDocument
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.Len(t, doc.Servers, 1)
	base := doc.Servers[0].URL

	documented := []string{}
	for path, operations := range doc.Paths {
		for method := range operations {
			if documentedMethods[method] {
				documented = append(documented, strings.ToUpper(method)+" "+base+path)
			}
		}
	}

	routed := []string{}
	for _, route := range v1handler.New(v1handler.Deps{}).Routes() {
		routed = append(routed, route.Pattern())
	}

	require.ElementsMatch(t, routed, documented)
}
