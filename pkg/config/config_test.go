package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}, cfg.Timetable.Weekdays)
	assert.False(t, cfg.Timetable.RespectWeeklyHours)
	assert.Equal(t, SubgroupFallbackSingle, cfg.Timetable.SubgroupFallback)
	assert.Equal(t, uint64(3), cfg.Fetch.Attempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Fetch.BaseDelay)
	assert.Equal(t, int64(5*1024*1024), cfg.Imports.MaxFileSizeBytes)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("TIMETABLE_SUBGROUP_FALLBACK", "FIRST_ROOM")
	v.Set("TIMETABLE_WEEKDAYS", "Monday, Wednesday ,")
	v.Set("FETCH_RETRY_BASE_DELAY", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg := fromViper(v)

	assert.Equal(t, SubgroupFallbackFirstRoom, cfg.Timetable.SubgroupFallback)
	assert.Equal(t, []string{"Monday", "Wednesday"}, cfg.Timetable.Weekdays)
	assert.Equal(t, 100*time.Millisecond, cfg.Fetch.BaseDelay)
	require.Len(t, cfg.CORS.AllowedOrigins, 2)
}

func TestFromViperUnknownFallbackIsSingle(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("TIMETABLE_SUBGROUP_FALLBACK", "duplicate")

	cfg := fromViper(v)

	assert.Equal(t, SubgroupFallbackSingle, cfg.Timetable.SubgroupFallback)
}
