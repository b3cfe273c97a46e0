package state

import (
	"fmt"
	"strings"
)

// Specialty is the closed set of work kinds a worker can perform.
type Specialty string

const (
	SpecialtyMarketing   Specialty = "MARKETING"
	SpecialtyContent     Specialty = "CONTENT"
	SpecialtyDesign      Specialty = "DESIGN"
	SpecialtyProgramming Specialty = "PROGRAMMING"
)

var specialties = []Specialty{
	SpecialtyMarketing,
	SpecialtyContent,
	SpecialtyDesign,
	SpecialtyProgramming,
}

// Specialties returns every known specialty in declaration order.
func Specialties() []Specialty {
	return append([]Specialty(nil), specialties...)
}

func (s Specialty) Valid() bool {
	for _, k := range specialties {
		if s == k {
			return true
		}
	}
	return false
}

func (s Specialty) String() string { return string(s) }

// ParseSpecialty accepts any letter case ("marketing", "Marketing").
func ParseSpecialty(v string) (Specialty, error) {
	s := Specialty(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown specialty %q", v)
	}
	return s, nil
}

func (s Specialty) MarshalText() ([]byte, error) {
	if s != "" && !s.Valid() {
		return nil, fmt.Errorf("unknown specialty %q", string(s))
	}
	return []byte(s), nil
}

func (s *Specialty) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*s = ""
		return nil
	}
	v, err := ParseSpecialty(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
