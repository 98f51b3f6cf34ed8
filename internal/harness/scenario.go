package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/signflow/internal/model"
	"github.com/roach88/signflow/internal/remote"
)

// DefaultAgreementID is used when a seed does not name one.
const DefaultAgreementID = "agreement-1"

// Scenario defines one editor scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Debounce overrides the one-second debounce window.
	Debounce string `yaml:"debounce,omitempty"`

	// Seed is the agreement as stored before the session opens.
	Seed Seed `yaml:"seed"`

	// Steps run in order after the session opens.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Seed describes the stored agreement.
type Seed struct {
	ID      string       `yaml:"id,omitempty"`
	Title   string       `yaml:"title"`
	Pages   int          `yaml:"pages,omitempty"`
	Signers []SeedSigner `yaml:"signers"`
	Fields  []SeedField  `yaml:"fields,omitempty"`
}

// SeedSigner is one stored signer. Steps follow list order.
type SeedSigner struct {
	UID          string `yaml:"uid,omitempty"`
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	Role         string `yaml:"role,omitempty"`
	ReminderDays int    `yaml:"reminder_days,omitempty"`
}

// SeedField is one stored field placement.
type SeedField struct {
	UID    string `yaml:"uid,omitempty"`
	Signer string `yaml:"signer"`
	Type   string `yaml:"type"`
	Page   int    `yaml:"page"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
}

// Step is exactly one of an editor action, a clock advance or a failure
// injection.
type Step struct {
	// Action is the action name, e.g. "move_signer".
	Action string `yaml:"action,omitempty"`

	// Args are decoded into the action's arguments.
	Args yaml.Node `yaml:"args,omitempty"`

	// Advance moves the manual clock, e.g. "1s".
	Advance string `yaml:"advance,omitempty"`

	// FailNext makes the next call to a service method fail.
	FailNext string `yaml:"fail_next,omitempty"`

	// ExpectError is the editor error code the action must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	Type    string   `yaml:"type"`
	Signers []string `yaml:"signers,omitempty"`
	Values  []int    `yaml:"values,omitempty"`
	Count   *int     `yaml:"count,omitempty"`
	Method  string   `yaml:"method,omitempty"`
	Stream  string   `yaml:"stream,omitempty"`
	State   string   `yaml:"state,omitempty"`
}

// Assertion type constants.
const (
	AssertOrder        = "order"
	AssertSteps        = "steps"
	AssertFieldCount   = "field_count"
	AssertVisibleCount = "visible_count"
	AssertSyncCalls    = "sync_calls"
	AssertPending      = "pending"
	AssertState        = "state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// window returns the debounce window.
func (s *Scenario) window() (time.Duration, error) {
	if s.Debounce == "" {
		return time.Second, nil
	}
	d, err := time.ParseDuration(s.Debounce)
	if err != nil {
		return 0, fmt.Errorf("debounce: %w", err)
	}
	return d, nil
}

// agreement converts the seed into a stored agreement.
func (s *Seed) agreement() (remote.Agreement, error) {
	id := s.ID
	if id == "" {
		id = DefaultAgreementID
	}
	a := remote.Agreement{
		Metadata:  model.Metadata{ID: id, Title: s.Title},
		PageCount: max(1, s.Pages),
	}
	for i, sg := range s.Signers {
		role, err := model.ParseRole(sg.Role)
		if err != nil {
			return remote.Agreement{}, fmt.Errorf("seed.signers[%d]: %w", i, err)
		}
		a.Signers = append(a.Signers, model.Signer{
			UID:      model.UID(sg.UID),
			Step:     i + 1,
			Role:     role,
			Name:     sg.Name,
			Email:    sg.Email,
			Reminder: model.Reminder{IntervalDays: sg.ReminderDays},
		})
	}
	for i, f := range s.Fields {
		ft, err := model.ParseFieldType(f.Type)
		if err != nil {
			return remote.Agreement{}, fmt.Errorf("seed.fields[%d]: %w", i, err)
		}
		a.InputFields = append(a.InputFields, model.FieldPlacement{
			UID:       model.UID(f.UID),
			SignerRef: model.UID(f.Signer),
			Type:      ft,
			Page:      f.Page,
			X:         f.X,
			Y:         f.Y,
		})
	}
	return a, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if _, err := s.window(); err != nil {
		return err
	}
	if _, err := s.Seed.agreement(); err != nil {
		return err
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	set := 0
	for _, v := range []string{st.Action, st.Advance, st.FailNext} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of action, advance or fail_next is required", index)
	}

	switch {
	case st.Action != "":
		if _, ok := builders[st.Action]; !ok {
			return fmt.Errorf("steps[%d]: unknown action %q", index, st.Action)
		}
	case st.Advance != "":
		if _, err := time.ParseDuration(st.Advance); err != nil {
			return fmt.Errorf("steps[%d]: advance: %w", index, err)
		}
	case st.FailNext != "":
		if !isMethod(st.FailNext) {
			return fmt.Errorf("steps[%d]: unknown method %q", index, st.FailNext)
		}
	}
	if st.ExpectError != "" && st.Action == "" {
		return fmt.Errorf("steps[%d]: expect_error only applies to actions", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertOrder:
		if a.Signers == nil {
			return fmt.Errorf("assertions[%d]: signers is required for order", index)
		}
	case AssertSteps:
		if a.Values == nil {
			return fmt.Errorf("assertions[%d]: values is required for steps", index)
		}
	case AssertFieldCount, AssertVisibleCount, AssertPending:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for %s", index, a.Type)
		}
	case AssertSyncCalls:
		if !isMethod(a.Method) {
			return fmt.Errorf("assertions[%d]: unknown method %q", index, a.Method)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for sync_calls", index)
		}
	case AssertState:
		if a.Stream == "" || a.State == "" {
			return fmt.Errorf("assertions[%d]: stream and state are required for state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func isMethod(name string) bool {
	return slices.Contains(remote.Methods, name)
}
