// Package zwave looks up Z-Wave product details by manufacturer, product
// type and product id. The table is loaded from a JSON document keyed by
// "0xMMMM:0xTTTT:0xPPPP" and is injected into the device layer.
package zwave

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"
)

// Info describes a Z-Wave product. Empty fields mean the table did not say.
type Info struct {
	Manufacturer string `json:"manufacturer"`
	Label        string `json:"label"`
	Description  string `json:"description"`
}

// Model combines the label and description the way devices report it:
// "description (label)" when both are known, whichever one is known
// otherwise, or "Unknown".
func (i Info) Model() string {
	switch {
	case i.Label != "" && i.Description != "":
		return fmt.Sprintf("%s (%s)", i.Description, i.Label)
	case i.Label != "":
		return i.Label
	case i.Description != "":
		return i.Description
	}
	return "Unknown"
}

// ManufacturerOrUnknown returns the manufacturer name or "Unknown".
func (i Info) ManufacturerOrUnknown() string {
	if i.Manufacturer == "" {
		return "Unknown"
	}
	return i.Manufacturer
}

// Table is a read-mostly product lookup. A nil *Table behaves as empty.
type Table struct {
	mu      sync.RWMutex
	entries map[string]Info
}

func NewTable(entries map[string]Info) *Table {
	t := &Table{entries: make(map[string]Info, len(entries))}
	for k, v := range entries {
		t.entries[k] = v
	}
	return t
}

// Key formats the lookup key for a product.
func Key(manufacturerID, productType, productID int) string {
	return fmt.Sprintf("0x%04x:0x%04x:0x%04x", manufacturerID, productType, productID)
}

// Load replaces the table contents with the JSON object read from r.
// Unknown fields such as "updated_at" are ignored.
func (t *Table) Load(r io.Reader) error {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return fmt.Errorf("decode zwave table: %w", err)
	}

	entries := make(map[string]Info, len(raw))
	for k, v := range raw {
		var info Info
		if err := json.Unmarshal(v, &info); err != nil {
			// Metadata entries are plain strings.
			continue
		}
		entries[k] = info
	}

	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()
	return nil
}

// LoadFile loads the table from path. A missing file leaves the table empty.
func LoadFile(path string) (*Table, error) {
	t := NewTable(nil)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("open zwave table: %w", err)
	}
	defer f.Close()

	if err := t.Load(f); err != nil {
		return nil, err
	}
	return t, nil
}

// Lookup returns the product details, or a zero Info when unknown.
func (t *Table) Lookup(manufacturerID, productType, productID int) Info {
	if t == nil {
		return Info{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[Key(manufacturerID, productType, productID)]
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
