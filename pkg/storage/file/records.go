package file

import (
	"librarian/pkg/domain"
	"librarian/pkg/storage"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Record field names. They match the JSON files written by earlier versions of
// the catalog so existing data keeps loading.
const (
	fieldTitle       = "title"
	fieldAuthor      = "author"
	fieldISBN        = "isbn"
	fieldIsAvailable = "is_available"

	fieldName          = "name"
	fieldUserID        = "user_id"
	fieldBorrowedItems = "borrowed_items"

	fieldItemID       = "item_id"
	fieldCheckoutDate = "checkout_date"
	fieldDueDate      = "due_date"
	fieldReturnDate   = "return_date"
)

// localTimeLayout is the naive ISO-8601 form (no offset) found in legacy files.
const localTimeLayout = "2006-01-02T15:04:05.999999999"

// encodeDocument renders records as {"<collection>": [record, ...]}.
func encodeDocument[T any](c storage.Collection, records []T, encode func(e *jx.Encoder, rec T)) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.SetIdent(2)

	e.Obj(func(e *jx.Encoder) {
		e.Field(string(c), func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, rec := range records {
					encode(e, rec)
				}
			})
		})
	})

	out := make([]byte, len(e.Bytes()))
	copy(out, e.Bytes())

	return out
}

// decodeDocument reads the record array stored under the collection key.
// Other top-level keys are ignored; an empty document yields no records.
func decodeDocument[T any](c storage.Collection, data []byte, decode func(d *jx.Decoder) (T, error)) ([]T, error) {
	records := []T{}
	if len(data) == 0 {
		return records, nil
	}

	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != string(c) {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}

		return d.Arr(func(d *jx.Decoder) error {
			rec, err := decode(d)
			if err != nil {
				return errors.Wrapf(err, "record %d", len(records))
			}
			records = append(records, rec)

			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", c)
	}

	return records, nil
}

func encodeItem(e *jx.Encoder, item domain.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field(fieldTitle, func(e *jx.Encoder) { e.Str(item.Title) })
		e.Field(fieldAuthor, func(e *jx.Encoder) { e.Str(item.Author) })
		e.Field(fieldISBN, func(e *jx.Encoder) { e.Str(string(item.ID)) })
		e.Field(fieldIsAvailable, func(e *jx.Encoder) { e.Bool(item.Available) })
	})
}

func decodeItem(d *jx.Decoder) (domain.Item, error) {
	item := domain.Item{Available: true}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case fieldTitle:
			item.Title, err = d.Str()
		case fieldAuthor:
			item.Author, err = d.Str()
		case fieldISBN:
			var id string
			id, err = d.Str()
			item.ID = domain.ItemID(id)
		case fieldIsAvailable:
			item.Available, err = d.Bool()
		default:
			err = d.Skip()
		}

		if err != nil {
			return errors.Wrap(err, key)
		}

		return nil
	})
	if err != nil {
		return domain.Item{}, err
	}
	if item.ID == "" {
		return domain.Item{}, errors.Errorf("missing %q", fieldISBN)
	}

	return item, nil
}

func encodeUser(e *jx.Encoder, user domain.User) {
	e.Obj(func(e *jx.Encoder) {
		e.Field(fieldName, func(e *jx.Encoder) { e.Str(user.Name) })
		e.Field(fieldUserID, func(e *jx.Encoder) { e.Str(string(user.ID)) })
		e.Field(fieldBorrowedItems, func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, id := range user.HeldItems {
					e.Str(string(id))
				}
			})
		})
	})
}

func decodeUser(d *jx.Decoder) (domain.User, error) {
	user := domain.User{HeldItems: []domain.ItemID{}}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case fieldName:
			user.Name, err = d.Str()
		case fieldUserID:
			var id string
			id, err = d.Str()
			user.ID = domain.UserID(id)
		case fieldBorrowedItems:
			if d.Next() == jx.Null {
				return d.Null()
			}
			err = d.Arr(func(d *jx.Decoder) error {
				id, err := d.Str()
				if err != nil {
					return err
				}
				// the held set never carries duplicates, even if the file does
				user.Hold(domain.ItemID(id))

				return nil
			})
		default:
			err = d.Skip()
		}

		if err != nil {
			return errors.Wrap(err, key)
		}

		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	if user.ID == "" {
		return domain.User{}, errors.Errorf("missing %q", fieldUserID)
	}

	return user, nil
}

func encodeLoan(e *jx.Encoder, loan domain.Loan) {
	e.Obj(func(e *jx.Encoder) {
		e.Field(fieldUserID, func(e *jx.Encoder) { e.Str(string(loan.UserID)) })
		e.Field(fieldItemID, func(e *jx.Encoder) { e.Str(string(loan.ItemID)) })
		e.Field(fieldCheckoutDate, func(e *jx.Encoder) { e.Str(formatTime(loan.CheckoutTime)) })
		e.Field(fieldDueDate, func(e *jx.Encoder) { e.Str(formatTime(loan.DueTime)) })
		e.Field(fieldReturnDate, func(e *jx.Encoder) {
			if loan.IsOpen() {
				e.Null()

				return
			}
			e.Str(formatTime(loan.ReturnTime))
		})
	})
}

func decodeLoan(d *jx.Decoder) (domain.Loan, error) {
	var loan domain.Loan
	var hasCheckout, hasDueDate bool
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var (
			err error
			s   string
		)
		switch key {
		case fieldUserID:
			s, err = d.Str()
			loan.UserID = domain.UserID(s)
		case fieldItemID:
			s, err = d.Str()
			loan.ItemID = domain.ItemID(s)
		case fieldCheckoutDate:
			loan.CheckoutTime, err = decodeTime(d)
			hasCheckout = err == nil
		case fieldDueDate:
			loan.DueTime, err = decodeTime(d)
			hasDueDate = err == nil
		case fieldReturnDate:
			if d.Next() == jx.Null {
				return d.Null()
			}
			loan.ReturnTime, err = decodeTime(d)
		default:
			err = d.Skip()
		}

		if err != nil {
			return errors.Wrap(err, key)
		}

		return nil
	})
	if err != nil {
		return domain.Loan{}, err
	}

	switch {
	case loan.UserID == "":
		return domain.Loan{}, errors.Errorf("missing %q", fieldUserID)
	case loan.ItemID == "":
		return domain.Loan{}, errors.Errorf("missing %q", fieldItemID)
	case !hasCheckout:
		return domain.Loan{}, errors.Errorf("missing %q", fieldCheckoutDate)
	case !hasDueDate:
		return domain.Loan{}, errors.Errorf("missing %q", fieldDueDate)
	}

	return loan, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}

	return parseTime(s)
}

// parseTime accepts RFC 3339 timestamps and naive ISO-8601 timestamps, which
// are read in the local time zone.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}

	t, err := time.ParseInLocation(localTimeLayout, s, time.Local)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse time %q", s)
	}

	return t, nil
}
