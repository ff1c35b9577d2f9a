package cron

import (
	"os"
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"k8s.io/client-go/kubernetes"

	"github.com/taskilo/mailsync/config"
	cron_config "github.com/taskilo/mailsync/internal/cron/config"
	"github.com/taskilo/mailsync/internal/logger"
)

type mockKubernetesInterface struct {
	kubernetes.Interface
	mock.Mock
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func TestNewCronManager(t *testing.T) {
	// Arrange
	cfg := &config.Config{
		AppConfig: &config.AppConfig{
			Logger: &logger.Config{
				LogLevel: "info",
			},
		},
	}
	log := getLogger()
	k8s := &mockKubernetesInterface{}

	// Act
	cm := NewCronManager(cfg, log, k8s, nil, nil, nil)

	// Assert
	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, log, cm.log)
	assert.Equal(t, k8s, cm.k8s)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_RegisterJobSchedules(t *testing.T) {
	// Set environment variables for testing
	os.Setenv("CRON_SCHEDULE_RENEW_WATCHES", "0 0 * * * *")
	os.Setenv("CRON_SCHEDULE_RECONCILE_SYNC", "0 */15 * * * *")
	defer os.Unsetenv("CRON_SCHEDULE_RENEW_WATCHES")
	defer os.Unsetenv("CRON_SCHEDULE_RECONCILE_SYNC")

	// Arrange
	cfg := &config.Config{
		AppConfig: &config.AppConfig{
			Logger: &logger.Config{
				LogLevel: "info",
			},
		},
	}
	log := getLogger()
	k8s := &mockKubernetesInterface{}
	cm := NewCronManager(cfg, log, k8s, nil, nil, nil)

	// Create a mock cron for testing
	mockCron := cronv3.New(cronv3.WithSeconds())

	// Register jobs directly with the configured schedules
	var cronConfig cron_config.Config
	cronConfig.CronScheduleRenewWatches = "0 0 * * * *"
	cronConfig.CronScheduleReconcileSync = "0 */15 * * * *"

	renewID, err := mockCron.AddFunc(cronConfig.CronScheduleRenewWatches, func() {})
	assert.NoError(t, err)
	cm.jobIDs["renew_watches"] = renewID

	reconcileID, err := mockCron.AddFunc(cronConfig.CronScheduleReconcileSync, func() {})
	assert.NoError(t, err)
	cm.jobIDs["reconcile_sync"] = reconcileID

	cm.cron = mockCron

	// Assert
	assert.NotNil(t, cm.cron)
	assert.Equal(t, 2, len(cm.jobIDs))
}

func TestCronManager_Stop(t *testing.T) {
	// Arrange
	cfg := &config.Config{
		AppConfig: &config.AppConfig{
			Logger: &logger.Config{
				LogLevel: "info",
			},
		},
	}
	log := getLogger()
	k8s := &mockKubernetesInterface{}
	cm := NewCronManager(cfg, log, k8s, nil, nil, nil)

	// Create a mock cron for testing
	mockCron := cronv3.New()
	mockCron.Start()
	cm.cron = mockCron

	// Act
	cm.Stop()

	// Assert
	select {
	case <-cm.stopCh:
		// Channel is closed as expected
	default:
		t.Error("Stop channel was not closed")
	}
}
