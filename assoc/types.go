package assoc

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/uniassoc/errors"
)

// Built-in namespaces used by package capability.
const (
	NamespaceAction   = "action"
	NamespaceReaction = "reaction"
	NamespaceVote     = "vote"
	NamespaceFollow   = "follow"
)

// Association is a directed, typed, timestamped edge.
type Association struct {
	ID            string    `json:"id" yaml:"id" msgpack:"id"`
	SourceID      string    `json:"source_id" yaml:"source_id" msgpack:"src"`
	DestinationID string    `json:"destination_id" yaml:"destination_id" msgpack:"dst"`
	Namespace     string    `json:"namespace" yaml:"namespace" msgpack:"ns"`
	Type          string    `json:"type" yaml:"type" msgpack:"type"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at" msgpack:"created_at"`
}

// New builds a record with a fresh ID, stamped at now (UTC).
func New(src, dst, ns, typ string, now time.Time) *Association {
	return &Association{
		ID:            uuid.NewString(),
		SourceID:      src,
		DestinationID: dst,
		Namespace:     ns,
		Type:          typ,
		CreatedAt:     now.UTC(),
	}
}

// UniqueKey is the value backends index to reject duplicate unique-mode inserts.
func (a *Association) UniqueKey() string {
	return UniqueKey(a.SourceID, a.DestinationID, a.Namespace, a.Type)
}

// UniqueKey composes the (source, destination, namespace, type) guard key.
// Each field is prefixed with its byte length, so ids may contain any byte
// and distinct tuples never share a key.
func UniqueKey(src, dst, ns, typ string) string {
	var b strings.Builder
	for _, f := range []string{src, dst, ns, typ} {
		b.WriteString(strconv.Itoa(len(f)))
		b.WriteByte(':')
		b.WriteString(f)
	}
	return b.String()
}

// Validate checks that every tuple field is present.
func (a *Association) Validate() error {
	if a == nil {
		return errors.NewInvalidRequestError("association is nil")
	}
	return validateTuple(a.SourceID, a.DestinationID, a.Namespace, a.Type)
}

func validateTuple(src, dst, ns, typ string) error {
	switch {
	case src == "":
		return errors.NewInvalidRequestError("source id is empty")
	case dst == "":
		return errors.NewInvalidRequestError("destination id is empty")
	case ns == "":
		return errors.NewInvalidRequestError("namespace is empty")
	case typ == "":
		return errors.NewInvalidRequestError("association type is empty")
	}
	return nil
}

func validatePair(src, dst, ns string) error {
	switch {
	case src == "":
		return errors.NewInvalidRequestError("source id is empty")
	case dst == "":
		return errors.NewInvalidRequestError("destination id is empty")
	case ns == "":
		return errors.NewInvalidRequestError("namespace is empty")
	}
	return nil
}

func validateReverse(dst, ns, typ string) error {
	switch {
	case dst == "":
		return errors.NewInvalidRequestError("destination id is empty")
	case ns == "":
		return errors.NewInvalidRequestError("namespace is empty")
	case typ == "":
		return errors.NewInvalidRequestError("association type is empty")
	}
	return nil
}

// Sources extracts source ids in record order.
func Sources(records []*Association) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.SourceID)
	}
	return ids
}
