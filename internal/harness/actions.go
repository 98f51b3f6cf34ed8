package harness

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/signflow/internal/editor"
	"github.com/roach88/signflow/internal/model"
	"github.com/roach88/signflow/internal/syncer"
)

// builder turns step args into an editor action.
type builder func(args *yaml.Node) (editor.Action, error)

var builders = map[string]builder{
	"add_signer": func(n *yaml.Node) (editor.Action, error) {
		var a struct {
			Name         string `yaml:"name"`
			Email        string `yaml:"email"`
			Role         string `yaml:"role"`
			ReminderDays int    `yaml:"reminder_days"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return nil, err
		}
		role, err := model.ParseRole(a.Role)
		if err != nil {
			return nil, err
		}
		return editor.AddSigner{Name: a.Name, Email: a.Email, Role: role, Reminder: model.Reminder{IntervalDays: a.ReminderDays}}, nil
	},
	"update_signer": func(n *yaml.Node) (editor.Action, error) {
		var a struct {
			UID          string  `yaml:"uid"`
			Name         *string `yaml:"name"`
			Email        *string `yaml:"email"`
			Role         *string `yaml:"role"`
			ReminderDays *int    `yaml:"reminder_days"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return nil, err
		}
		act := editor.UpdateSigner{UID: model.UID(a.UID), Name: a.Name, Email: a.Email}
		if a.Role != nil {
			role, err := model.ParseRole(*a.Role)
			if err != nil {
				return nil, err
			}
			act.Role = &role
		}
		if a.ReminderDays != nil {
			act.Reminder = &model.Reminder{IntervalDays: *a.ReminderDays}
		}
		return act, nil
	},
	"remove_signer": func(n *yaml.Node) (editor.Action, error) {
		var a uidArgs
		err := decodeArgs(n, &a)
		return editor.RemoveSigner{UID: model.UID(a.UID)}, err
	},
	"move_signer": func(n *yaml.Node) (editor.Action, error) {
		var a struct {
			UID      string `yaml:"uid"`
			Position int    `yaml:"position"`
		}
		err := decodeArgs(n, &a)
		return editor.MoveSigner{UID: model.UID(a.UID), Position: a.Position}, err
	},
	"begin_reorder": func(n *yaml.Node) (editor.Action, error) {
		var a uidArgs
		err := decodeArgs(n, &a)
		return editor.BeginReorder{UID: model.UID(a.UID)}, err
	},
	"drag_reorder": func(n *yaml.Node) (editor.Action, error) {
		var a struct {
			DeltaY float64 `yaml:"delta_y"`
		}
		err := decodeArgs(n, &a)
		return editor.DragReorder{DeltaY: a.DeltaY}, err
	},
	"end_reorder":    noArgs(editor.EndReorder{}),
	"cancel_reorder": noArgs(editor.CancelReorder{}),
	"place_field": func(n *yaml.Node) (editor.Action, error) {
		var a struct {
			Signer string `yaml:"signer"`
			Type   string `yaml:"type"`
			Page   int    `yaml:"page"`
			X      int    `yaml:"x"`
			Y      int    `yaml:"y"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return nil, err
		}
		ft, err := model.ParseFieldType(a.Type)
		if err != nil {
			return nil, err
		}
		return editor.PlaceField{Signer: model.UID(a.Signer), Type: ft, Page: a.Page, X: a.X, Y: a.Y}, nil
	},
	"begin_field_move": func(n *yaml.Node) (editor.Action, error) {
		var a uidArgs
		err := decodeArgs(n, &a)
		return editor.BeginFieldMove{UID: model.UID(a.UID)}, err
	},
	"drag_field": func(n *yaml.Node) (editor.Action, error) {
		var a deltaArgs
		err := decodeArgs(n, &a)
		return editor.DragField{DX: a.DX, DY: a.DY}, err
	},
	"end_field_move":    noArgs(editor.EndFieldMove{}),
	"cancel_field_move": noArgs(editor.CancelFieldMove{}),
	"reposition_field": func(n *yaml.Node) (editor.Action, error) {
		var a deltaArgs
		err := decodeArgs(n, &a)
		return editor.RepositionField{UID: model.UID(a.UID), DX: a.DX, DY: a.DY}, err
	},
	"delete_field": func(n *yaml.Node) (editor.Action, error) {
		var a uidArgs
		err := decodeArgs(n, &a)
		return editor.DeleteField{UID: model.UID(a.UID)}, err
	},
	"begin_drop": func(n *yaml.Node) (editor.Action, error) {
		var a struct {
			Signer string `yaml:"signer"`
			Type   string `yaml:"type"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return nil, err
		}
		ft, err := model.ParseFieldType(a.Type)
		if err != nil {
			return nil, err
		}
		return editor.BeginDrop{Signer: model.UID(a.Signer), Type: ft}, nil
	},
	"track_drop": func(n *yaml.Node) (editor.Action, error) {
		var a pointArgs
		err := decodeArgs(n, &a)
		return editor.TrackDrop{X: a.X, Y: a.Y}, err
	},
	"release_drop": func(n *yaml.Node) (editor.Action, error) {
		var a pointArgs
		err := decodeArgs(n, &a)
		return editor.ReleaseDrop{X: a.X, Y: a.Y}, err
	},
	"cancel_drop": noArgs(editor.CancelDrop{}),
	"set_active_page": func(n *yaml.Node) (editor.Action, error) {
		var a struct {
			Page int `yaml:"page"`
		}
		err := decodeArgs(n, &a)
		return editor.SetActivePage{Page: a.Page}, err
	},
	"set_title": func(n *yaml.Node) (editor.Action, error) {
		var a struct {
			Title string `yaml:"title"`
		}
		err := decodeArgs(n, &a)
		return editor.SetTitle{Title: a.Title}, err
	},
	"set_dates": func(n *yaml.Node) (editor.Action, error) {
		var a struct {
			EndDate    string `yaml:"end_date"`
			SignBefore string `yaml:"sign_before"`
			Sequence   bool   `yaml:"sequence"`
		}
		if err := decodeArgs(n, &a); err != nil {
			return nil, err
		}
		end, err := parseDate(a.EndDate)
		if err != nil {
			return nil, fmt.Errorf("end_date: %w", err)
		}
		before, err := parseDate(a.SignBefore)
		if err != nil {
			return nil, fmt.Errorf("sign_before: %w", err)
		}
		return editor.SetDates{Dates: model.DateSequence{EndDate: end, SignBefore: before, Sequence: a.Sequence}}, nil
	},
	"confirm": noArgs(editor.Confirm{}),
	"retry": func(n *yaml.Node) (editor.Action, error) {
		var a struct {
			Stream string `yaml:"stream"`
		}
		err := decodeArgs(n, &a)
		return editor.Retry{Stream: syncer.Stream(a.Stream)}, err
	},
}

type uidArgs struct {
	UID string `yaml:"uid"`
}

type deltaArgs struct {
	UID string `yaml:"uid"`
	DX  int    `yaml:"dx"`
	DY  int    `yaml:"dy"`
}

type pointArgs struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

func noArgs(a editor.Action) builder {
	return func(n *yaml.Node) (editor.Action, error) {
		if n.Kind != 0 && len(n.Content) > 0 {
			return nil, fmt.Errorf("%s takes no args", a.ActionName())
		}
		return a, nil
	}
}

// decodeArgs decodes an args node with unknown keys rejected. A missing
// node leaves v at its zero value.
func decodeArgs(n *yaml.Node, v any) error {
	if n.Kind == 0 {
		return nil
	}
	data, err := yaml.Marshal(n)
	if err != nil {
		return fmt.Errorf("args: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("args: %w", err)
	}
	return nil
}

// buildAction converts a step into an editor action.
func buildAction(st *Step) (editor.Action, error) {
	b, ok := builders[st.Action]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", st.Action)
	}
	a, err := b(&st.Args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", st.Action, err)
	}
	return a, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse(time.DateOnly, s)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
