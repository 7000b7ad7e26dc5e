package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecordTypeTitle is the discriminator tag stored on every land-title record.
// It distinguishes titles from any other record types sharing the same ledger.
const RecordTypeTitle = "TITRE_FONCIER"

// MetadataOwnerKey is the mandatory metadata field every title carries.
const MetadataOwnerKey = "owner"

// Action identifies the kind of mutation recorded in a title's history.
type Action string

const (
	// ActionCreation is recorded once, when the title is created
	ActionCreation Action = "CREATION"
	// ActionUpdate is recorded when metadata changes without an owner change
	ActionUpdate Action = "UPDATE"
	// ActionTransfer is recorded when ownership moves to a new owner
	ActionTransfer Action = "TRANSFER"
)

// HistoryEntry is one append-only entry in a title's embedded history.
// Price is present only for transfers with a price greater than zero;
// a price of exactly zero is serialized as absent, not as 0.
type HistoryEntry struct {
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details"`
	Price     *int64    `json:"price,omitempty"`
}

// Metadata is the title's open metadata mapping, with the mandatory owner
// field promoted to a typed, reserved slot. All other fields live in
// Attributes and round-trip through the flat JSON object of the wire format.
type Metadata struct {
	Owner      string
	Attributes map[string]any
}

// MarshalJSON flattens the owner field back into the open mapping.
func (m Metadata) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(m.Attributes)+1)
	for k, v := range m.Attributes {
		flat[k] = v
	}
	flat[MetadataOwnerKey] = m.Owner
	return json.Marshal(flat)
}

// UnmarshalJSON splits the flat wire object into the reserved owner slot
// and the free-form attributes. A non-string owner is rejected; a missing
// owner is caught later by Validate so decoding stays usable for patches.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	m.Owner = ""
	m.Attributes = make(map[string]any, len(flat))
	for k, v := range flat {
		if k == MetadataOwnerKey {
			owner, ok := v.(string)
			if !ok {
				return fmt.Errorf("metadata field %q must be a string", MetadataOwnerKey)
			}
			m.Owner = owner
			continue
		}
		m.Attributes[k] = v
	}

	return nil
}

// Validate checks the invariant that owner is never absent once a title exists.
func (m Metadata) Validate() error {
	if m.Owner == "" {
		return fmt.Errorf("%w: metadata is missing mandatory field %q", ErrInvalidInput, MetadataOwnerKey)
	}
	return nil
}

// MetadataPatch is a parsed shallow patch against a title's metadata.
type MetadataPatch map[string]any

// ParseMetadata decodes and validates a full metadata payload, as supplied
// at creation time.
func ParseMetadata(raw []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return Metadata{}, fmt.Errorf("%w: metadata is not a valid JSON object: %v", ErrInvalidInput, err)
	}
	if err := m.Validate(); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

// ParseMetadataPatch decodes a metadata patch without requiring any field.
func ParseMetadataPatch(raw []byte) (MetadataPatch, error) {
	var p MetadataPatch
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: metadata patch is not a valid JSON object: %v", ErrInvalidInput, err)
	}
	return p, nil
}

// Merge applies the patch shallowly: patch fields overwrite same-named
// existing fields, unspecified fields are preserved. The receiver is left
// untouched. An owner supplied by the patch must be a non-empty string.
func (m Metadata) Merge(patch MetadataPatch) (Metadata, error) {
	merged := Metadata{
		Owner:      m.Owner,
		Attributes: make(map[string]any, len(m.Attributes)+len(patch)),
	}
	for k, v := range m.Attributes {
		merged.Attributes[k] = v
	}

	for k, v := range patch {
		if k == MetadataOwnerKey {
			owner, ok := v.(string)
			if !ok || owner == "" {
				return Metadata{}, fmt.Errorf("%w: metadata field %q must be a non-empty string", ErrInvalidInput, MetadataOwnerKey)
			}
			merged.Owner = owner
			continue
		}
		merged.Attributes[k] = v
	}

	return merged, nil
}

// TitleRecord is the central entity, one per unique content hash. The JSON
// field names are the wire contract shared with every other party reading
// the ledger and must not change.
type TitleRecord struct {
	// ID is the content hash identifying the title; it doubles as the ledger key
	ID string `json:"id"`
	// FilePath is the opaque document path recorded at creation, immutable thereafter
	FilePath string `json:"cheminFichier"`
	// RecordType is always RecordTypeTitle for records managed by this engine
	RecordType string `json:"type"`
	// Metadata is the open mapping with the mandatory owner field
	Metadata Metadata `json:"metadata"`
	// History is the append-only sequence of accepted mutations, oldest first
	History []HistoryEntry `json:"historique"`
	// CreatedAt is the transaction timestamp of the creation
	CreatedAt time.Time `json:"dateCreation"`
	// UpdatedAt is the transaction timestamp of the latest mutation
	UpdatedAt time.Time `json:"derniereMiseAJour"`
}

// Owner returns the current owner recorded in metadata.
func (r *TitleRecord) Owner() string {
	return r.Metadata.Owner
}

// VerificationResult is the outcome of an authenticity check. Absence of the
// title is a reportable outcome, not an error.
type VerificationResult struct {
	ID          string    `json:"id"`
	IsAuthentic bool      `json:"isAuthentic"`
	Timestamp   time.Time `json:"timestamp"`
}

// DeleteConfirmation acknowledges removal of a title's live ledger entry.
type DeleteConfirmation struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryRevision is one revision of a title as recorded by the ledger's
// append-only revision log. Record is nil for tombstoned revisions.
type HistoryRevision struct {
	TxID      string       `json:"txId"`
	Timestamp time.Time    `json:"timestamp"`
	IsDelete  bool         `json:"isDelete"`
	Record    *TitleRecord `json:"record,omitempty"`
}

// EventType names the domain events announced after every accepted mutation.
type EventType string

const (
	EventTypeTitleCreated     EventType = "TitleCreated"
	EventTypeTitleUpdated     EventType = "TitleUpdated"
	EventTypeTitleTransferred EventType = "TitleTransferred"
	EventTypeTitleDeleted     EventType = "TitleDeleted"
)

// TitleEvent is the envelope published to the event channel. Delivery is
// best-effort; the engine never blocks an operation on event emission.
type TitleEvent struct {
	// ID is a unique event id assigned at emission time
	ID string `json:"id"`
	// Type is the event name
	Type EventType `json:"type"`
	// TitleID is the content hash of the affected title
	TitleID string `json:"titleId"`
	// Payload carries the event-specific fields (owner, price, ...)
	Payload map[string]any `json:"payload"`
	// Timestamp is the transaction timestamp of the originating operation
	Timestamp time.Time `json:"timestamp"`
}
