package sca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/openbanking-berlin/internal/config"
)

func boolPtr(b bool) *bool { return &b }

func selectorConfig(methods ...config.ScaMethod) *config.BerlinConfig {
	return &config.BerlinConfig{
		SupportedScaApproaches: []config.ScaApproach{
			{Name: "REDIRECT", Default: true},
		},
		SupportedScaMethods: methods,
	}
}

func redirectMethod(id string) config.ScaMethod {
	return config.ScaMethod{
		ID:             id,
		Type:           "SMS_OTP",
		Name:           "SMS OTP on Mobile",
		MappedApproach: "REDIRECT",
	}
}

func TestSelector_Decide(t *testing.T) {
	t.Run("nil preference uses default approach", func(t *testing.T) {
		selector := NewSelector(selectorConfig(redirectMethod("sms-otp")))

		decision, err := selector.Decide(nil, true)
		require.Nil(t, err)
		assert.Equal(t, "REDIRECT", decision.Approach.Name)
		assert.True(t, decision.ScaRequired)
	})

	t.Run("redirect preferred with redirect configured", func(t *testing.T) {
		selector := NewSelector(selectorConfig(redirectMethod("sms-otp")))

		decision, err := selector.Decide(boolPtr(true), true)
		require.Nil(t, err)
		assert.Equal(t, "REDIRECT", decision.Approach.Name)
	})

	t.Run("decoupled preferred without decoupled configured", func(t *testing.T) {
		selector := NewSelector(selectorConfig(redirectMethod("sms-otp")))

		_, err := selector.Decide(boolPtr(false), true)
		require.NotNil(t, err)
	})

	t.Run("single method is pre-selected", func(t *testing.T) {
		selector := NewSelector(selectorConfig(redirectMethod("sms-otp")))

		decision, err := selector.Decide(nil, true)
		require.Nil(t, err)
		chosen := decision.ChosenMethod()
		require.NotNil(t, chosen)
		assert.Equal(t, "sms-otp", chosen.ID)
	})

	t.Run("multiple methods leave the choice open", func(t *testing.T) {
		selector := NewSelector(selectorConfig(redirectMethod("sms-otp"), redirectMethod("push-otp")))

		decision, err := selector.Decide(nil, true)
		require.Nil(t, err)
		assert.Nil(t, decision.ChosenMethod())
		assert.Len(t, decision.Methods, 2)
	})

	t.Run("sca not required skips method selection", func(t *testing.T) {
		selector := NewSelector(selectorConfig(redirectMethod("sms-otp")))

		decision, err := selector.Decide(nil, false)
		require.Nil(t, err)
		assert.False(t, decision.ScaRequired)
		assert.Empty(t, decision.Methods)
	})
}
