package table

import (
	"errors"
	"fmt"
	"strings"
)

// ActionType names a user intent a view can receive.
type ActionType string

// Action types accepted by View.Dispatch.
const (
	ActionSort          ActionType = "sort"
	ActionSearch        ActionType = "search"
	ActionTab           ActionType = "tab"
	ActionTimeFrame     ActionType = "timeframe"
	ActionOpen          ActionType = "open"
	ActionDismissPrompt ActionType = "dismiss"
)

// Action is one explicit message for a view.
type Action interface {
	Type() ActionType
}

// SortAction is a click on a column header.
type SortAction struct{ Key string }

// SearchAction replaces the free-text query.
type SearchAction struct{ Query string }

// TabAction switches the visible record subset.
type TabAction struct{ Tab Tab }

// TimeFrameAction switches the activity window.
type TimeFrameAction struct{ TimeFrame TimeFrame }

// OpenAction is a click on a row.
type OpenAction struct{ ID string }

// DismissPromptAction closes the connect-wallet prompt.
type DismissPromptAction struct{}

func (SortAction) Type() ActionType          { return ActionSort }
func (SearchAction) Type() ActionType        { return ActionSearch }
func (TabAction) Type() ActionType           { return ActionTab }
func (TimeFrameAction) Type() ActionType     { return ActionTimeFrame }
func (OpenAction) Type() ActionType          { return ActionOpen }
func (DismissPromptAction) Type() ActionType { return ActionDismissPrompt }

// ErrRecordNotFound is returned when a row id is not in the view's records.
var ErrRecordNotFound = errors.New("record not found")

// ErrUnknownSortKey is returned for a sort request on a column the schema
// does not have.
var ErrUnknownSortKey = errors.New("unknown sort key")

// NavigateRequest asks the host to show the detail page of a record.
type NavigateRequest struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// PromptConnectWallet is the only prompt a view raises.
const PromptConnectWallet = "connect_wallet"

// Prompt is the pending connect-wallet request and the action that raised it.
type Prompt struct {
	Kind   string     `json:"kind"`
	Action ActionType `json:"action"`
}

// State is everything a viewer has changed on a view.
type State struct {
	Sort      SortState `json:"sort"`
	Query     string    `json:"query"`
	Tab       Tab       `json:"tab"`
	TimeFrame TimeFrame `json:"timeFrame"`
	Prompt    *Prompt   `json:"prompt,omitempty"`
}

// Result reports what happened to one dispatched action.
type Result struct {
	Permitted bool
	Prompted  bool
	Navigate  *NavigateRequest
	Err       error
}

// View is the state of one table for one viewer. It is not safe for
// concurrent use; the owner serializes Dispatch calls.
type View[T Record] struct {
	schema  *Schema[T]
	records []T
	gate    *Gate
	state   State
}

// NewView creates a view over records. The slice is copied and never
// modified afterwards.
func NewView[T Record](schema *Schema[T], records []T, gate *Gate) *View[T] {
	owned := make([]T, len(records))
	copy(owned, records)
	return &View[T]{
		schema:  schema,
		records: owned,
		gate:    gate,
		state: State{
			Sort:      DefaultSort(schema.DefaultKey),
			Tab:       schema.DefaultTab(),
			TimeFrame: AllTime,
		},
	}
}

// Schema returns the schema the view was built with.
func (v *View[T]) Schema() *Schema[T] { return v.schema }

// Len is the number of records before scoping.
func (v *View[T]) Len() int { return len(v.records) }

// State returns a copy of the current state.
func (v *View[T]) State() State {
	s := v.state
	if s.Prompt != nil {
		p := *s.Prompt
		s.Prompt = &p
	}
	return s
}

// PromptConnect implements Prompter.
func (v *View[T]) PromptConnect(action ActionType) {
	v.state.Prompt = &Prompt{Kind: PromptConnectWallet, Action: action}
}

// Dispatch applies action on behalf of wallet. A gated action from a
// disconnected wallet leaves the state untouched apart from the prompt.
func (v *View[T]) Dispatch(wallet WalletContext, action Action) Result {
	if !v.gate.Allow(wallet, action.Type(), v) {
		return Result{Permitted: false, Prompted: true}
	}

	res := Result{Permitted: true}
	switch a := action.(type) {
	case SortAction:
		if !v.schema.Has(a.Key) {
			res.Err = fmt.Errorf("%s view: %w %q", v.schema.Kind, ErrUnknownSortKey, a.Key)
			break
		}
		v.state.Sort = NextSort(v.state.Sort, a.Key, v.schema.DefaultKey)
	case SearchAction:
		v.state.Query = strings.TrimSpace(a.Query)
	case TabAction:
		tab, err := ParseTab(string(a.Tab))
		if err != nil || !v.schema.HasTab(tab) {
			res.Err = fmt.Errorf("%s view has no tab %q", v.schema.Kind, a.Tab)
			break
		}
		v.state.Tab = tab
	case TimeFrameAction:
		tf, err := ParseTimeFrame(string(a.TimeFrame))
		if err != nil {
			res.Err = err
			break
		}
		v.state.TimeFrame = tf
	case OpenAction:
		if !v.has(a.ID) {
			res.Err = fmt.Errorf("%s %q: %w", v.schema.Kind, a.ID, ErrRecordNotFound)
			break
		}
		res.Navigate = &NavigateRequest{Kind: v.schema.Kind, ID: a.ID}
	case DismissPromptAction:
		v.state.Prompt = nil
	default:
		res.Err = fmt.Errorf("unsupported action %q", action.Type())
	}
	return res
}

// Rows recomputes the visible rows: scope, then filter, then sort.
func (v *View[T]) Rows() []T {
	return Query(v.schema, v.records, v.state)
}

func (v *View[T]) has(id string) bool {
	for _, r := range v.records {
		if r.RecordID() == id {
			return true
		}
	}
	return false
}

// Query computes the rows for state without a view. Zero fields take the
// schema defaults; tab and time frame names are read case-insensitively.
func Query[T Record](schema *Schema[T], records []T, state State) []T {
	if state.Sort.Key == "" {
		state.Sort = DefaultSort(schema.DefaultKey)
	}
	if state.Tab == "" {
		state.Tab = schema.DefaultTab()
	} else if tab, err := ParseTab(string(state.Tab)); err == nil {
		state.Tab = tab
	}
	if tf, err := ParseTimeFrame(string(state.TimeFrame)); err == nil {
		state.TimeFrame = tf
	}

	rows := schema.Scope(records, state.Tab, state.TimeFrame)
	rows = Filter(schema, rows, state.Query)
	return Sort(schema, rows, state.Sort)
}
