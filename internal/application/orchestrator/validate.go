package orchestrator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/doeshing/ridepilot/internal/domain"
)

var payloadValidate *validator.Validate

func init() {
	payloadValidate = validator.New(validator.WithRequiredStructEnabled())
	payloadValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = payloadValidate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// checkInput rejects payloads no provider could answer. Structurally empty
// inputs (no drivers to match) come back with Empty set.
func checkInput(feature domain.Feature, payload map[string]any) error {
	invalid := func(reason string) error {
		return &domain.InvalidInputError{Feature: feature, Reason: reason}
	}

	var target any
	switch feature {
	case domain.FeatureMatch:
		target = &domain.MatchInput{}
	case domain.FeaturePrice:
		target = &domain.PriceInput{}
	case domain.FeatureRoute:
		target = &domain.RouteInput{}
	case domain.FeatureDemandForecast:
		target = &domain.DemandInput{}
	case domain.FeatureAnalytics:
		target = &domain.AnalyticsInput{}
	case domain.FeatureChat:
		target = &domain.ChatInput{}
	default:
		return invalid(fmt.Sprintf("unknown feature %q", feature))
	}

	if err := domain.DecodePayload(payload, target); err != nil {
		return invalid(err.Error())
	}
	if err := payloadValidate.Struct(target); err != nil {
		return invalid(describe(err))
	}

	switch in := target.(type) {
	case *domain.MatchInput:
		if len(in.Drivers) == 0 {
			return &domain.InvalidInputError{Feature: feature, Reason: "no drivers available", Empty: true}
		}
	case *domain.RouteInput:
		if in.Origin == in.Destination {
			return invalid("origin and destination are the same point")
		}
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
