package action

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/benchmark-cli/internal/category"
	"github.com/sells-group/benchmark-cli/internal/model"
)

// reviewColumns maps a factor to its human decision and motivation fields.
var reviewColumns = map[category.Factor][2]string{
	category.FactorProducts:     {"cf_products_services_hr_decision", "cf_products_services_hr_motivation"},
	category.FactorFunctions:    {"cf_functional_profile_hr_decision", "cf_functional_profile_hr_motivation"},
	category.FactorIndependence: {"cf_independence_hr_decision", "cf_independence_hr_motivation"},
}

// ReviewInput is a human decision on one factor. An empty decision clears
// the override so the AI decision applies again.
type ReviewInput struct {
	Factor     category.Factor `json:"factor" validate:"required,oneof=products_services functional_profile independence"`
	Decision   string          `json:"decision" validate:"decision"`
	Motivation string          `json:"motivation" validate:"max=4000"`
}

// SetHumanReview records or clears the human decision for one factor.
func (s *Service) SetHumanReview(ctx context.Context, id int64, in ReviewInput) Result[*CompanyView] {
	in.Factor = category.Factor(strings.TrimSpace(string(in.Factor)))
	if msg, valid := s.check(in); !valid {
		return fail[*CompanyView](msg)
	}
	c, msg := s.loadCompany(ctx, id)
	if msg != "" {
		return fail[*CompanyView](msg)
	}

	cols := reviewColumns[in.Factor]
	patch := map[string]*string{cols[0]: nil, cols[1]: nil}
	if d := category.ParseDecision(in.Decision); d != category.Undecided {
		patch[cols[0]] = model.Ptr(d.String())
		patch[cols[1]] = model.NullIfBlank(in.Motivation)
	}

	changed, err := model.ApplyCompanyPatch(c, patch)
	if err != nil {
		return fail[*CompanyView](ResolveMessage(err))
	}
	if len(changed) > 0 {
		fields := make(map[string]any, len(changed))
		for _, name := range changed {
			fields[name] = patch[name]
		}
		if err := s.store.UpdateCompanyFields(ctx, id, fields); err != nil {
			return fail[*CompanyView](s.failure(serviceDatabase, "save the review", err, zap.Int64("company_id", id)))
		}
	}
	zap.L().Info("action: human review set",
		zap.Int64("company_id", id),
		zap.String("factor", string(in.Factor)),
		zap.String("decision", model.Str(patch[cols[0]])),
	)
	return s.companyView(ctx, c)
}
