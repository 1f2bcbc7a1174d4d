package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ChangeEventType names the kind of change delivered by the feed.
type ChangeEventType string

const (
	ChangeInsert ChangeEventType = "INSERT"
	ChangeUpdate ChangeEventType = "UPDATE"
	ChangeDelete ChangeEventType = "DELETE"
)

// ChangeEvent is one of InsertEvent, UpdateEvent or DeleteEvent.
type ChangeEvent interface {
	Type() ChangeEventType
	OrderID() string
	isChangeEvent()
}

// InsertEvent carries a freshly stored order.
type InsertEvent struct {
	Order Order
}

// UpdateEvent carries the changed columns of an existing order.
type UpdateEvent struct {
	ID    string
	Patch OrderPatch
}

// DeleteEvent identifies a removed order.
type DeleteEvent struct {
	ID string
}

func (InsertEvent) Type() ChangeEventType { return ChangeInsert }
func (UpdateEvent) Type() ChangeEventType { return ChangeUpdate }
func (DeleteEvent) Type() ChangeEventType { return ChangeDelete }

func (e InsertEvent) OrderID() string { return e.Order.ID }
func (e UpdateEvent) OrderID() string { return e.ID }
func (e DeleteEvent) OrderID() string { return e.ID }

func (InsertEvent) isChangeEvent() {}
func (UpdateEvent) isChangeEvent() {}
func (DeleteEvent) isChangeEvent() {}

// ErrMalformedEvent is returned for payloads that cannot be decoded.
var ErrMalformedEvent = errors.New("malformed change event")

// ChangeNotice is the {eventType, id} payload published by the orders
// trigger. Row data is fetched separately so notifications stay small.
type ChangeNotice struct {
	Type ChangeEventType `json:"eventType"`
	ID   string          `json:"id"`
}

// DecodeChangeNotice parses a trigger notification.
func DecodeChangeNotice(payload []byte) (ChangeNotice, error) {
	var n ChangeNotice
	if err := json.Unmarshal(payload, &n); err != nil {
		return ChangeNotice{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	switch n.Type {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
	default:
		return ChangeNotice{}, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, n.Type)
	}
	if n.ID == "" {
		return ChangeNotice{}, fmt.Errorf("%w: notice without id", ErrMalformedEvent)
	}
	return n, nil
}

type wireEvent struct {
	EventType string          `json:"eventType"`
	New       json.RawMessage `json:"new"`
	Old       json.RawMessage `json:"old"`
}

// DecodeChangeEvent parses the {eventType, new, old} payload sent to browsers.
func DecodeChangeEvent(payload []byte) (ChangeEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch ChangeEventType(w.EventType) {
	case ChangeInsert:
		fields, err := decodeRecord(w.New)
		if err != nil {
			return nil, err
		}
		order, err := orderFromRecord(fields)
		if err != nil {
			return nil, err
		}
		return InsertEvent{Order: order}, nil
	case ChangeUpdate:
		fields, err := decodeRecord(w.New)
		if err != nil {
			return nil, err
		}
		id, _ := fields["id"].(string)
		if id == "" {
			return nil, fmt.Errorf("%w: update without id", ErrMalformedEvent)
		}
		patch, err := ParsePatch(patchFields(fields))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		return UpdateEvent{ID: id, Patch: patch}, nil
	case ChangeDelete:
		fields, err := decodeRecord(w.Old)
		if err != nil {
			return nil, err
		}
		id, _ := fields["id"].(string)
		if id == "" {
			return nil, fmt.Errorf("%w: delete without id", ErrMalformedEvent)
		}
		return DeleteEvent{ID: id}, nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, w.EventType)
}

func decodeRecord(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: missing record", ErrMalformedEvent)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return fields, nil
}

func patchFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if IsPatchColumn(k) {
			out[k] = v
		}
	}
	return out
}

func orderFromRecord(fields map[string]any) (Order, error) {
	var order Order
	order.ID, _ = fields["id"].(string)
	if order.ID == "" {
		return Order{}, fmt.Errorf("%w: insert without id", ErrMalformedEvent)
	}
	if created, ok := fields["created_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			order.CreatedAt = t
		}
	}
	patch, err := ParsePatch(patchFields(fields))
	if err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	patch.Apply(&order)
	return order, nil
}

// EncodeChangeEvent renders an event in the same wire shape DecodeChangeEvent
// accepts.
func EncodeChangeEvent(ev ChangeEvent) ([]byte, error) {
	out := struct {
		EventType ChangeEventType `json:"eventType"`
		New       any             `json:"new"`
		Old       any             `json:"old"`
	}{EventType: ev.Type()}

	switch e := ev.(type) {
	case InsertEvent:
		out.New = e.Order
	case UpdateEvent:
		rec := make(map[string]any, len(e.Patch)+1)
		for k, v := range e.Patch {
			rec[k] = v
		}
		rec["id"] = e.ID
		out.New = rec
		out.Old = map[string]string{"id": e.ID}
	case DeleteEvent:
		out.Old = map[string]string{"id": e.ID}
	default:
		return nil, fmt.Errorf("%w: %T", ErrMalformedEvent, ev)
	}
	return json.Marshal(out)
}
