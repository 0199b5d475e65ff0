// Package economy tracks the four resource buckets and integrates producer
// and consumer rates over time.
package economy

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Resource uint8

const (
	Gold Resource = iota
	Food
	Labor
	Faith

	ResourceCount
)

var resourceNames = [ResourceCount]string{"gold", "food", "labor", "faith"}

func (r Resource) Valid() bool {
	return r < ResourceCount
}

func (r Resource) String() string {
	if !r.Valid() {
		return fmt.Sprintf("resource(%d)", uint8(r))
	}
	return resourceNames[r]
}

func ParseResource(s string) (Resource, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range resourceNames {
		if n == name {
			return Resource(i), nil
		}
	}
	return 0, fmt.Errorf("unknown resource %q", s)
}

func (r Resource) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid resource %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Resource) UnmarshalText(b []byte) error {
	v, err := ParseResource(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Bucket is one resource's stock and capacity.
type Bucket struct {
	Current decimal.Decimal
	Cap     decimal.Decimal
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	return decimal.Max(lo, decimal.Min(hi, v))
}
