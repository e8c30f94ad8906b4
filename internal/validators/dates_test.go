package validators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/pkg/utils"
)

func TestParseDateField(t *testing.T) {
	t.Run("valid ISO date", func(t *testing.T) {
		date, err := ParseDateField("validUntil", "2030-06-15")
		require.Nil(t, err)
		assert.Equal(t, 2030, date.Year())
		assert.Equal(t, time.June, date.Month())
	})

	t.Run("malformed date", func(t *testing.T) {
		_, err := ParseDateField("validUntil", "15/06/2030")
		require.NotNil(t, err)
		assert.Equal(t, errors.CodeFormatError, err.Code)
		assert.Contains(t, err.Text, "validUntil")
	})
}

func TestValidateFutureDateField(t *testing.T) {
	t.Run("past date rejected", func(t *testing.T) {
		_, err := ValidateFutureDateField("startDate", "2020-01-01")
		require.NotNil(t, err)
		assert.Equal(t, errors.CodeTimestampInvalid, err.Code)
	})

	t.Run("today accepted", func(t *testing.T) {
		today := utils.FormatISODate(utils.TodayUTC())
		_, err := ValidateFutureDateField("startDate", today)
		assert.Nil(t, err)
	})
}

func TestGetValidatedValidUntil(t *testing.T) {
	t.Run("past date is rejected", func(t *testing.T) {
		_, err := GetValidatedValidUntil("2020-01-01", false, 0)
		require.NotNil(t, err)
		assert.Equal(t, errors.CodeTimestampInvalid, err.Code)
	})

	t.Run("future date within sentinel passes through", func(t *testing.T) {
		date, err := GetValidatedValidUntil("2030-06-15", false, 0)
		require.Nil(t, err)
		assert.Equal(t, "2030-06-15", utils.FormatISODate(date))
	})

	t.Run("sentinel date passes through unchanged", func(t *testing.T) {
		date, err := GetValidatedValidUntil("9999-12-31", false, 0)
		require.Nil(t, err)
		assert.Equal(t, "9999-12-31", utils.FormatISODate(date))
	})

	t.Run("cap enabled clamps beyond the cap", func(t *testing.T) {
		date, err := GetValidatedValidUntil("9999-12-31", true, 1)
		require.Nil(t, err)
		assert.Equal(t, utils.DaysFromToday(1), date)
	})

	t.Run("cap enabled keeps dates inside the cap", func(t *testing.T) {
		tomorrow := utils.FormatISODate(utils.DaysFromToday(1))
		date, err := GetValidatedValidUntil(tomorrow, true, 90)
		require.Nil(t, err)
		assert.Equal(t, tomorrow, utils.FormatISODate(date))
	})

	t.Run("normalization is idempotent", func(t *testing.T) {
		first, err := GetValidatedValidUntil("9999-12-31", true, 30)
		require.Nil(t, err)

		second, err := GetValidatedValidUntil(utils.FormatISODate(first), true, 30)
		require.Nil(t, err)
		assert.Equal(t, first, second)
	})
}
