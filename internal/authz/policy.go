// Package authz holds the pure authorization decisions for the LMS. Nothing
// in here touches storage; callers load the ownership chain and pass it in.
package authz

import (
	"github.com/innotech/lms-api/internal/models"
)

// Actor is the authenticated principal performing an action.
type Actor struct {
	ID     uint
	Role   models.Role
	Active bool
}

// Action tags every permission-checked operation.
type Action string

const (
	ActionCreateCourse Action = "course.create"
	ActionUpdateCourse Action = "course.update"
	ActionDeleteCourse Action = "course.delete"

	ActionCreateModule Action = "module.create"
	ActionReadModule   Action = "module.read"

	ActionCreateAssignment Action = "assignment.create"
	ActionReadAssignment   Action = "assignment.read"
	ActionUpdateAssignment Action = "assignment.update"
	ActionDeleteAssignment Action = "assignment.delete"

	ActionCreateSubmission Action = "submission.create"
	ActionReadSubmission   Action = "submission.read"
	ActionUpdateSubmission Action = "submission.update"
	ActionGradeSubmission  Action = "submission.grade"

	ActionEnroll Action = "course.enroll"
)

// Target carries the ownership chain of the resource under decision.
// InstructorID is the owning course's instructor (resolved transitively for
// assignments and submissions); StudentID is the owning submission's author.
// Zero values mean "not applicable", e.g. no submission exists yet.
type Target struct {
	InstructorID uint
	StudentID    uint
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow returns a permitting decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny returns a rejecting decision with the given reason.
func Deny(reason string) Decision { return Decision{Reason: reason} }

const (
	// ReasonInactive denies any action by a deactivated account.
	ReasonInactive = "account inactive"
	// ReasonRole denies actions the actor's role never permits.
	ReasonRole = "role not permitted"
	// ReasonNotOwningInstructor denies trainers acting outside their courses.
	ReasonNotOwningInstructor = "not owning instructor"
	// ReasonNotSubmissionOwner denies students touching others' submissions.
	ReasonNotSubmissionOwner = "not submission owner"
)

// Authorize is the single decision point for role- and ownership-gated
// actions. It is a pure predicate: callers translate a deny into their
// forbidden signal and never proceed.
func Authorize(actor Actor, action Action, target Target) Decision {
	if !actor.Active {
		return Deny(ReasonInactive)
	}

	if actor.Role == models.RoleAdmin {
		return Allow()
	}

	switch action {
	case ActionCreateCourse:
		// Any trainer may open a new course; ownership starts at creation.
		if actor.Role != models.RoleTrainer {
			return Deny(ReasonRole)
		}
		return Allow()

	case ActionUpdateCourse, ActionDeleteCourse, ActionCreateModule,
		ActionCreateAssignment, ActionUpdateAssignment, ActionDeleteAssignment,
		ActionGradeSubmission:
		if actor.Role != models.RoleTrainer {
			return Deny(ReasonRole)
		}
		if target.InstructorID != actor.ID {
			return Deny(ReasonNotOwningInstructor)
		}
		return Allow()

	case ActionCreateSubmission:
		if actor.Role != models.RoleStudent {
			return Deny(ReasonRole)
		}
		if target.StudentID != 0 && target.StudentID != actor.ID {
			return Deny(ReasonNotSubmissionOwner)
		}
		return Allow()

	case ActionReadSubmission, ActionUpdateSubmission:
		switch actor.Role {
		case models.RoleStudent:
			if target.StudentID != actor.ID {
				return Deny(ReasonNotSubmissionOwner)
			}
			return Allow()
		case models.RoleTrainer:
			// Updating (grading fields) stays grade-gated; reading follows
			// the same ownership chain.
			if target.InstructorID != actor.ID {
				return Deny(ReasonNotOwningInstructor)
			}
			return Allow()
		default:
			return Deny(ReasonRole)
		}

	case ActionReadAssignment:
		// Assignment metadata is visible to every authenticated role. A
		// non-owning trainer still gets the assignment, just with its
		// submissions emptied: reads degrade, mutations deny.
		return Allow()

	case ActionEnroll:
		return Allow()

	case ActionReadModule:
		// Module visibility is the enrollment gate's job; see CanViewModules.
		return Allow()

	default:
		return Deny(ReasonRole)
	}
}

// CanViewModules is the enrollment gate: module listings are visible iff an
// enrollment exists for the (user, course) pair, regardless of role, except
// admins who always pass. Published-only filtering is a separate concern
// applied on top of this gate.
func CanViewModules(actor Actor, enrolled bool) bool {
	if !actor.Active {
		return false
	}
	if actor.Role == models.RoleAdmin {
		return true
	}
	return enrolled
}
