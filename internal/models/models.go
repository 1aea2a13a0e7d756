package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// TrafficStat is one advertiser performance snapshot. Field order matches the
// JSON shape consumed downstream.
type TrafficStat struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	Origin          *string `json:"origin"`
	ConversionRatio float64 `json:"conversion_ratio"`
	SuccessfulLeads int     `json:"successful_leads"`
	TotalFTDs       int     `json:"total_ftds"`
	TotalLeads      int     `json:"total_leads"`
	LateTotalFTDs   int     `json:"late_total_ftds"`
	Revenue         float64 `json:"revenue"`
}

// Clone returns a copy that shares no memory with s.
func (s TrafficStat) Clone() TrafficStat {
	if s.Origin != nil {
		o := *s.Origin
		s.Origin = &o
	}
	return s
}

type CreateRequest struct {
	Name            string  `json:"name"`
	Origin          *string `json:"origin"`
	SuccessfulLeads int     `json:"successful_leads"`
	TotalFTDs       int     `json:"total_ftds"`
	TotalLeads      int     `json:"total_leads"`
	LateTotalFTDs   int     `json:"late_total_ftds"`
	Revenue         float64 `json:"revenue"`
}

var (
	ErrEmptyName     = errors.New("name is required")
	ErrNegativeCount = errors.New("counts must be non-negative")
)

func (r CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if r.SuccessfulLeads < 0 || r.TotalFTDs < 0 || r.TotalLeads < 0 || r.LateTotalFTDs < 0 {
		return ErrNegativeCount
	}
	return nil
}

// Patch is a partial update with one optional slot per editable field.
// conversion_ratio and id are not editable through a patch.
type Patch struct {
	Name            *string        `json:"name,omitempty"`
	Origin          OptionalString `json:"origin"`
	SuccessfulLeads *int           `json:"successful_leads,omitempty"`
	TotalFTDs       *int           `json:"total_ftds,omitempty"`
	TotalLeads      *int           `json:"total_leads,omitempty"`
	LateTotalFTDs   *int           `json:"late_total_ftds,omitempty"`
	Revenue         *float64       `json:"revenue,omitempty"`
}

// MirrorLeads copies successful_leads into total_leads when the patch sets
// the former but not the latter, the way the editor keeps both in step.
func (p *Patch) MirrorLeads() {
	if p.SuccessfulLeads != nil && p.TotalLeads == nil {
		v := *p.SuccessfulLeads
		p.TotalLeads = &v
	}
}

func (p Patch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return ErrEmptyName
	}
	for _, v := range []*int{p.SuccessfulLeads, p.TotalFTDs, p.TotalLeads, p.LateTotalFTDs} {
		if v != nil && *v < 0 {
			return ErrNegativeCount
		}
	}
	return nil
}

// Apply merges the set slots over s. The caller recomputes derived fields.
func (p Patch) Apply(s TrafficStat) TrafficStat {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Origin.Set {
		s.Origin = nil
		if p.Origin.Value != nil {
			o := *p.Origin.Value
			s.Origin = &o
		}
	}
	if p.SuccessfulLeads != nil {
		s.SuccessfulLeads = *p.SuccessfulLeads
	}
	if p.TotalFTDs != nil {
		s.TotalFTDs = *p.TotalFTDs
	}
	if p.TotalLeads != nil {
		s.TotalLeads = *p.TotalLeads
	}
	if p.LateTotalFTDs != nil {
		s.LateTotalFTDs = *p.LateTotalFTDs
	}
	if p.Revenue != nil {
		s.Revenue = *p.Revenue
	}
	return s
}

// OptionalString tells an absent JSON field apart from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

func SetString(v *string) OptionalString { return OptionalString{Set: true, Value: v} }

func (o *OptionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

func (o OptionalString) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

type Summary struct {
	Records         int     `json:"records"`
	SuccessfulLeads int     `json:"successful_leads"`
	TotalLeads      int     `json:"total_leads"`
	TotalFTDs       int     `json:"total_ftds"`
	LateTotalFTDs   int     `json:"late_total_ftds"`
	Revenue         float64 `json:"revenue"`
	ConversionRatio float64 `json:"conversion_ratio"`
}
