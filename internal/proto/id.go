package proto

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/vovakirdan/livepoll-server/internal/utils"
)

// ErrInvalidID is returned when an id is neither a positive number nor a numeric string.
var ErrInvalidID = errors.New("invalid id")

// ID is a positive integer id that clients may send either as a JSON number
// or as a numeric string.
type ID int64

// UnmarshalJSON accepts 7 and "7".
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	v, ok := utils.ParseID(string(data))
	if !ok {
		return ErrInvalidID
	}
	*id = ID(v)
	return nil
}

// MarshalJSON encodes the id as a JSON number.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(id), 10)), nil
}

// String returns the decimal form used as a room key.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// DecodeText decodes a bare string-or-number payload into its text form.
func DecodeText(data json.RawMessage) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
