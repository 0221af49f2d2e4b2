package audit

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyServiceName fails a run before any backend call is made.
var ErrEmptyServiceName = errors.New("service name is empty")

// ServiceProfile describes the AI service under assessment. It is
// created once per run and immutable afterwards, except for Type which
// the classifier fills in.
type ServiceProfile struct {
	Name          string   `json:"name" yaml:"name"`
	Purpose       string   `json:"purpose" yaml:"purpose"`
	Users         string   `json:"users,omitempty" yaml:"users,omitempty"`
	Features      []string `json:"features,omitempty" yaml:"features,omitempty"`
	DataInput     string   `json:"data_input,omitempty" yaml:"data_input,omitempty"`
	DataOutput    string   `json:"data_output,omitempty" yaml:"data_output,omitempty"`
	DataSources   []string `json:"data_sources,omitempty" yaml:"data_sources,omitempty"`
	Model         string   `json:"model,omitempty" yaml:"model,omitempty"`
	SensitiveData bool     `json:"sensitive_data,omitempty" yaml:"sensitive_data,omitempty"`
	Type          string   `json:"type,omitempty" yaml:"type,omitempty"`
}

// Service type classifications.
const (
	TypeGenerative  = "generative"
	TypeRecommender = "recommender"
	TypePredictive  = "predictive"
	TypeOther       = "other"
)

// Normalize coerces a possibly malformed profile to the fixed field
// set: fields are trimmed, blank optional fields get an explicit
// placeholder, and the type classification is filled in. An empty
// service name is the one unrecoverable shape error.
func (p ServiceProfile) Normalize() (ServiceProfile, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return p, ErrEmptyServiceName
	}

	p.Purpose = strings.TrimSpace(p.Purpose)
	if p.Purpose == "" {
		p.Purpose = "unspecified"
	}

	p.Users = strings.TrimSpace(p.Users)
	p.DataInput = strings.TrimSpace(p.DataInput)
	p.DataOutput = strings.TrimSpace(p.DataOutput)
	p.Model = strings.TrimSpace(p.Model)

	features := make([]string, 0, len(p.Features))
	for _, feature := range p.Features {
		if feature = strings.TrimSpace(feature); feature != "" {
			features = append(features, feature)
		}
	}
	p.Features = features

	sources := make([]string, 0, len(p.DataSources))
	for _, source := range p.DataSources {
		if source = strings.TrimSpace(source); source != "" {
			sources = append(sources, source)
		}
	}
	p.DataSources = sources

	if p.Type == "" {
		p.Type = ClassifyServiceType(p.Purpose)
	}

	return p, nil
}

// ClassifyServiceType buckets a service by its stated purpose using
// keyword rules. Cheap and deterministic; the generative backend is
// deliberately not involved here.
func ClassifyServiceType(purpose string) string {
	purpose = strings.ToLower(purpose)

	switch {
	case containsAny(purpose, "generat", "creat", "writ", "summar", "translat", "compose", "image", "draft"):
		return TypeGenerative
	case containsAny(purpose, "recommend", "curat", "rank", "search", "personaliz", "suggest"):
		return TypeRecommender
	case containsAny(purpose, "predict", "classif", "detect", "diagnos", "forecast", "score"):
		return TypePredictive
	default:
		return TypeOther
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Describe serializes the profile for inclusion in a grounding prompt.
func (p ServiceProfile) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", p.Name)
	fmt.Fprintf(&sb, "Purpose: %s\n", p.Purpose)
	if p.Type != "" {
		fmt.Fprintf(&sb, "Type: %s\n", p.Type)
	}
	if p.Users != "" {
		fmt.Fprintf(&sb, "Target users: %s\n", p.Users)
	}
	if len(p.Features) > 0 {
		fmt.Fprintf(&sb, "Features: %s\n", strings.Join(p.Features, ", "))
	}
	if p.DataInput != "" {
		fmt.Fprintf(&sb, "Input data: %s\n", p.DataInput)
	}
	if p.DataOutput != "" {
		fmt.Fprintf(&sb, "Output data: %s\n", p.DataOutput)
	}
	if len(p.DataSources) > 0 {
		fmt.Fprintf(&sb, "Data sources: %s\n", strings.Join(p.DataSources, ", "))
	}
	if p.Model != "" {
		fmt.Fprintf(&sb, "Model/technology: %s\n", p.Model)
	}
	if p.SensitiveData {
		sb.WriteString("Handles sensitive data: yes\n")
	}
	return sb.String()
}
