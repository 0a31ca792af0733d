package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/isometry/ldap-attr/internal/directory"
)

// Target identifies what is being reconciled.
type Target struct {
	DN        string // entry to modify; must already exist
	Attribute string // attribute to reconcile
}

// Options are the inputs of one reconciliation run.
type Options struct {
	Target    Target
	Values    ValueSet
	Mode      Mode
	CheckMode bool // compute the plan but never apply it
}

// Result reports the outcome of one run.
type Result struct {
	InvocationID  string                   `json:"invocation_id"`
	Changed       bool                     `json:"changed"`
	Modifications []directory.Modification `json:"modlist"`
}

// Reconciler computes and applies the minimal modification plan for one
// attribute.
type Reconciler struct {
	session directory.Session
	logger  hclog.Logger
}

// New creates a Reconciler over the given session.
func New(session directory.Session, logger hclog.Logger) *Reconciler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Reconciler{
		session: session,
		logger:  logger.Named("reconcile"),
	}
}

// Run computes the modification plan for the target and, unless check mode
// is set, applies it. The computed plan is reported either way.
func (r *Reconciler) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Target.DN == "" {
		return nil, fmt.Errorf("target DN is required")
	}
	if opts.Target.Attribute == "" {
		return nil, fmt.Errorf("target attribute is required")
	}

	id := uuid.NewString()
	logger := r.logger.With(
		"invocation_id", id,
		"dn", opts.Target.DN,
		"attribute", opts.Target.Attribute,
		"state", opts.Mode.String(),
	)

	logger.Debug("computing modification plan",
		"desired_values", opts.Values.Len(),
		"check_mode", opts.CheckMode,
	)

	plan, err := r.plan(ctx, opts)
	if err != nil {
		logger.Error("planning failed", "error", err.Error())
		return nil, err
	}

	result := &Result{
		InvocationID:  id,
		Changed:       len(plan) > 0,
		Modifications: plan,
	}

	if !result.Changed {
		logger.Debug("already converged, nothing to do")
		return result, nil
	}

	if opts.CheckMode {
		logger.Info("check mode: modification computed but not applied",
			"op", plan[0].Op.String(),
			"value_count", len(plan[0].Values),
		)
		return result, nil
	}

	if err := r.session.ApplyModification(ctx, opts.Target.DN, plan); err != nil {
		logger.Error("modification failed", "error", err.Error())
		return nil, err
	}

	logger.Info("modification applied",
		"op", plan[0].Op.String(),
		"value_count", len(plan[0].Values),
	)

	return result, nil
}

// plan dispatches to the strategy for the configured mode. Planning only
// reads from the directory.
func (r *Reconciler) plan(ctx context.Context, opts Options) ([]directory.Modification, error) {
	switch opts.Mode {
	case ModePresent:
		return r.planPresent(ctx, opts.Target, opts.Values)
	case ModeAbsent:
		return r.planAbsent(ctx, opts.Target, opts.Values)
	case ModeExact:
		return r.planExact(ctx, opts.Target, opts.Values)
	default:
		return nil, fmt.Errorf("unsupported state: %s", opts.Mode.String())
	}
}

// planPresent adds the desired values the server reports missing.
func (r *Reconciler) planPresent(ctx context.Context, target Target, desired ValueSet) ([]directory.Modification, error) {
	var missing []string

	for _, value := range desired.Values() {
		present, err := r.session.ValuePresent(ctx, target.DN, target.Attribute, value)
		if err != nil {
			return nil, err
		}
		if !present {
			missing = append(missing, value)
		}
	}

	if len(missing) == 0 {
		return nil, nil
	}

	return []directory.Modification{{
		Op:        directory.OpAdd,
		Attribute: target.Attribute,
		Values:    missing,
	}}, nil
}

// planAbsent deletes the desired values the server reports present.
func (r *Reconciler) planAbsent(ctx context.Context, target Target, desired ValueSet) ([]directory.Modification, error) {
	var present []string

	for _, value := range desired.Values() {
		found, err := r.session.ValuePresent(ctx, target.DN, target.Attribute, value)
		if err != nil {
			return nil, err
		}
		if found {
			present = append(present, value)
		}
	}

	if len(present) == 0 {
		return nil, nil
	}

	return []directory.Modification{{
		Op:        directory.OpDelete,
		Attribute: target.Attribute,
		Values:    present,
	}}, nil
}

// planExact forces the attribute to exactly the desired values. The current
// set comes from a full fetch and is compared locally, so values the server
// would consider equal under its matching rules can still trigger a change.
// Emptiness of either side is preferred over a general replace: adding onto
// an empty attribute and deleting the whole attribute are cheaper and some
// servers treat replacing onto or from empty specially.
func (r *Reconciler) planExact(ctx context.Context, target Target, desired ValueSet) ([]directory.Modification, error) {
	values, err := r.session.CurrentValues(ctx, target.DN, target.Attribute)
	if err != nil {
		return nil, err
	}
	current := NewValueSet(values...)

	if current.Equal(desired) {
		return nil, nil
	}

	switch {
	case current.IsEmpty():
		return []directory.Modification{{
			Op:        directory.OpAdd,
			Attribute: target.Attribute,
			Values:    desired.Values(),
		}}, nil
	case desired.IsEmpty():
		return []directory.Modification{{
			Op:        directory.OpDeleteAll,
			Attribute: target.Attribute,
		}}, nil
	default:
		return []directory.Modification{{
			Op:        directory.OpReplace,
			Attribute: target.Attribute,
			Values:    desired.Values(),
		}}, nil
	}
}
