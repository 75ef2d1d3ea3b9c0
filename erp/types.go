package erp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	ID      int64     `json:"id"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Model  string         `json:"model"`
	Method string         `json:"method"`
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

// DateLayout is the ERP's datetime wire format, always UTC.
const DateLayout = "2006-01-02 15:04:05"

// FormatDate renders t in the ERP's datetime format.
func FormatDate(t time.Time) string { return t.UTC().Format(DateLayout) }

var jsonFalse = []byte("false")

func isFalsy(data []byte) bool {
	data = bytes.TrimSpace(data)
	return bytes.Equal(data, jsonFalse) || bytes.Equal(data, []byte("null"))
}

// Text is a string field that the ERP sends as false when unset.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	if isFalsy(data) {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

// Float is a numeric field that may arrive as false.
type Float struct {
	Value float64
	Valid bool
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if isFalsy(data) {
		*f = Float{}
		return nil
	}
	if err := json.Unmarshal(data, &f.Value); err != nil {
		return err
	}
	f.Valid = true
	return nil
}

func (f Float) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// Many2One is an [id, display_name] reference or false.
type Many2One struct {
	ID   int64
	Name string
}

func (m *Many2One) UnmarshalJSON(data []byte) error {
	if isFalsy(data) {
		*m = Many2One{}
		return nil
	}
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("many2one: expected 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &m.ID); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &m.Name)
}

// Production is one mrp.production record.
type Production struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Product    Many2One `json:"product_id"`
	Quantity   Float    `json:"product_qty"`
	UoM        Many2One `json:"product_uom_id"`
	Note       Text     `json:"note"`
	CreateDate Text     `json:"create_date"`
}

// ProductionFields are the fields requested for every production read.
var ProductionFields = []string{"id", "name", "product_id", "product_qty", "product_uom_id", "note", "create_date"}

// CreatedAt parses CreateDate; ok is false when it is missing or malformed.
func (p Production) CreatedAt() (t time.Time, ok bool) {
	if p.CreateDate == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, string(p.CreateDate), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
