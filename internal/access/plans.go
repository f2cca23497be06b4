package access

import "strings"

const (
	// PlanFree - план бесплатного пользователя, доступа не даёт.
	PlanFree = "free_user"
	// PlanTrial - пробный план, доступ даёт только до истечения trialEndsAt.
	PlanTrial = "trial_user"
)

// ParsePaidPlans разбирает список платных планов из строки конфигурации
// вида "pro_monthly, pro_annual". Пустые элементы отбрасываются,
// пустая строка даёт пустой список.
func ParsePaidPlans(value string) []string {
	plans := []string{}
	if value == "" {
		return plans
	}
	for _, plan := range strings.Split(value, ",") {
		plan = strings.TrimSpace(plan)
		if plan != "" {
			plans = append(plans, plan)
		}
	}
	return plans
}

// IsPaidPlan сообщает, считается ли план платным.
//
// free_user и trial_user платными не бывают. Если список paidPlans пуст,
// любой другой непустой план считается платным.
func IsPaidPlan(plan string, paidPlans []string) bool {
	if plan == "" || plan == PlanFree || plan == PlanTrial {
		return false
	}
	if len(paidPlans) == 0 {
		return true
	}
	for _, p := range paidPlans {
		if p == plan {
			return true
		}
	}
	return false
}
