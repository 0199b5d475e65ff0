package message

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/zeusync/hexkernel/internal/core/errs"
)

// Envelope is the wire form of a request or event.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type kinded interface {
	Kind() string
}

// required is implemented by payloads with fields whose zero value is a
// meaningful choice, so omitting them must not silently pick it.
type required interface {
	requiredFields() []string
}

var requestFactory = factory[Request](
	func() Request { return &SpawnEntity{} },
	func() Request { return &RequestPath{} },
	func() Request { return &RequestRandomDest{} },
	func() Request { return &UpdateEntityPosition{} },
	func() Request { return &UpdateEntityState{} },
	func() Request { return &RemoveEntity{} },
	func() Request { return &RegisterEntityStats{} },
	func() Request { return &SetStat{} },
	func() Request { return &TakeDamage{} },
	func() Request { return &Heal{} },
	func() Request { return &ProjectileHit{} },
	func() Request { return &SpendResources{} },
	func() Request { return &AddResources{} },
	func() Request { return &ProcessTurnConsumption{} },
	func() Request { return &RegisterProducer{} },
	func() Request { return &RegisterConsumer{} },
	func() Request { return &RemoveProducer{} },
	func() Request { return &RemoveConsumer{} },
)

var eventFactory = factory[Event](
	func() Event { return &EntitySpawned{} },
	func() Event { return &SpawnFailed{} },
	func() Event { return &PathFound{} },
	func() Event { return &PathFailed{} },
	func() Event { return &RandomDestFound{} },
	func() Event { return &CombatStarted{} },
	func() Event { return &CombatEnded{} },
	func() Event { return &DamageDealt{} },
	func() Event { return &SpawnProjectile{} },
	func() Event { return &EntityDamaged{} },
	func() Event { return &EntityHealed{} },
	func() Event { return &EntityDied{} },
	func() Event { return &StatChanged{} },
	func() Event { return &ResourceChanged{} },
	func() Event { return &SpendRejected{} },
)

func factory[T kinded](ctors ...func() T) map[string]func() T {
	m := make(map[string]func() T, len(ctors))
	for _, ctor := range ctors {
		m[ctor().Kind()] = ctor
	}
	return m
}

// DecodeRequest parses an envelope into the request value it names. Unknown
// kinds and malformed payloads wrap errs.ErrValidation.
func DecodeRequest(data []byte) (Request, error) {
	ptr, err := decode(data, requestFactory)
	if err != nil {
		return nil, err
	}
	return deref(ptr), nil
}

func DecodeEvent(data []byte) (Event, error) {
	ptr, err := decode(data, eventFactory)
	if err != nil {
		return nil, err
	}
	return deref(ptr), nil
}

func EncodeRequest(r Request) ([]byte, error) {
	return encode(r)
}

func EncodeEvent(e Event) ([]byte, error) {
	return encode(e)
}

func encode(v kinded) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", v.Kind(), err)
	}
	return json.Marshal(Envelope{Kind: v.Kind(), Payload: payload})
}

func decode[T kinded](data []byte, ctors map[string]func() T) (T, error) {
	var zero T
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return zero, fmt.Errorf("%w: envelope: %v", errs.ErrValidation, err)
	}
	ctor, ok := ctors[env.Kind]
	if !ok {
		return zero, fmt.Errorf("%w: unknown kind %q", errs.ErrValidation, env.Kind)
	}
	v := ctor()
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, v); err != nil {
			return zero, fmt.Errorf("%w: %s payload: %v", errs.ErrValidation, env.Kind, err)
		}
	}
	if r, ok := any(v).(required); ok {
		if err := checkRequired(env.Kind, env.Payload, r.requiredFields()); err != nil {
			return zero, err
		}
	}
	return v, nil
}

func checkRequired(kind string, payload json.RawMessage, fields []string) error {
	var present map[string]json.RawMessage
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &present); err != nil {
			return fmt.Errorf("%w: %s payload: %v", errs.ErrValidation, kind, err)
		}
	}
	for _, f := range fields {
		if raw, ok := present[f]; !ok || string(raw) == "null" {
			return fmt.Errorf("%w: %s payload: missing %q", errs.ErrValidation, kind, f)
		}
	}
	return nil
}

// deref turns the *T built by a factory back into the T value callers switch on.
func deref[T any](ptr T) T {
	return reflect.ValueOf(ptr).Elem().Interface().(T)
}
