package scene

import "encoding/json"

// Element is one drawable item in a scene. The geometry and styling live in
// Data and are opaque to the sync layer; only the identity and versioning
// fields participate in reconciliation.
type Element struct {
	ID      string          `json:"id"`
	Type    string          `json:"type,omitempty"`
	Version int64           `json:"version"`
	Nonce   int64           `json:"versionNonce"`
	Deleted bool            `json:"isDeleted,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Marshal serializes a collection in the canonical form used for storage,
// checksums, and the wire protocol.
func Marshal(elements []Element) ([]byte, error) {
	if elements == nil {
		elements = []Element{}
	}
	return json.Marshal(elements)
}

// Unmarshal is the inverse of Marshal.
func Unmarshal(data []byte) ([]Element, error) {
	var elements []Element
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, err
	}
	return elements, nil
}
