// Package access определяет, есть ли у пользователя доступ к платным
// возможностям платформы.
//
// Решение принимается чистой функцией от плана пользователя, окончания
// пробного периода, планов организаций, в которых он состоит, списка платных
// планов и текущего момента. Неполные или некорректные данные приводят к
// отсутствию доступа, а не к ошибке.
package access

// Config - настройки резолвера, задаются при старте приложения.
type Config struct {
	// PaidPlans - список платных планов. Пустой список означает, что платным
	// считается любой план, кроме free_user и trial_user.
	PaidPlans []string
}

// Input - состояние пользователя, по которому принимается решение.
type Input struct {
	Plan        string
	TrialEndsAt RawInstant
	Memberships []Membership
	// PaidPlans переопределяет список из Config, если не nil.
	PaidPlans    []string
	NowInSeconds int64
}

// State - результат разрешения доступа.
type State struct {
	PaidPlans             []string `json:"paid_plans"`
	Plan                  string   `json:"plan"`
	TrialEndsAt           Instant  `json:"trial_ends_at"`
	HasPaidPlan           bool     `json:"has_paid_plan"`
	HasMembershipPaidPlan bool     `json:"has_membership_paid_plan"`
	HasActiveTrial        bool     `json:"has_active_trial"`
	HasAccess             bool     `json:"has_access"`
}

// Resolver разрешает доступ с учётом настроенного списка платных планов.
type Resolver struct {
	paidPlans []string
}

// NewResolver создаёт Resolver.
func NewResolver(cfg Config) *Resolver {
	plans := make([]string, len(cfg.PaidPlans))
	copy(plans, cfg.PaidPlans)
	return &Resolver{paidPlans: plans}
}

// Resolve возвращает состояние доступа для in.
func (r *Resolver) Resolve(in Input) State {
	if in.PaidPlans == nil {
		in.PaidPlans = r.paidPlans
	}
	return ResolveAccessState(in)
}

// ResolveAccessState вычисляет состояние доступа. Если in.PaidPlans равен nil,
// список платных планов пуст.
func ResolveAccessState(in Input) State {
	paidPlans := make([]string, len(in.PaidPlans))
	copy(paidPlans, in.PaidPlans)

	trialEndsAt := CoerceTrialEndsAt(in.TrialEndsAt)

	hasPaidPlan := IsPaidPlan(in.Plan, paidPlans)

	hasMembershipPaidPlan := false
	for _, m := range in.Memberships {
		if IsPaidPlan(m.Plan(), paidPlans) {
			hasMembershipPaidPlan = true
			break
		}
	}

	activeTrial := HasActiveTrial(in.Plan, trialEndsAt, in.NowInSeconds)

	return State{
		PaidPlans:             paidPlans,
		Plan:                  in.Plan,
		TrialEndsAt:           trialEndsAt,
		HasPaidPlan:           hasPaidPlan,
		HasMembershipPaidPlan: hasMembershipPaidPlan,
		HasActiveTrial:        activeTrial,
		HasAccess:             hasPaidPlan || hasMembershipPaidPlan || activeTrial,
	}
}
