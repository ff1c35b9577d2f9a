package cron

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/taskilo/mailsync/config"
	"github.com/taskilo/mailsync/interfaces"
	cron_config "github.com/taskilo/mailsync/internal/cron/config"
	"github.com/taskilo/mailsync/internal/enum"
	"github.com/taskilo/mailsync/internal/logger"
	"github.com/taskilo/mailsync/internal/tracing"
	"github.com/taskilo/mailsync/internal/utils"
)

// CONSTANTS
const (
	// GroupMailsync is the group for mailsync related jobs
	GroupMailsync = "mailsync"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupMailsync: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg            *config.Config
	log            logger.Logger
	cron           *cronv3.Cron
	k8s            kubernetes.Interface
	stopCh         chan struct{}
	jobIDs         map[string]cronv3.EntryID
	syncService    interfaces.SyncService
	watchService   interfaces.WatchService
	credentialRepo interfaces.CredentialRepository
}

func NewCronManager(
	cfg *config.Config,
	log logger.Logger,
	k8s kubernetes.Interface,
	syncService interfaces.SyncService,
	watchService interfaces.WatchService,
	credentialRepo interfaces.CredentialRepository,
) *CronManager {
	return &CronManager{
		cfg:            cfg,
		log:            log,
		k8s:            k8s,
		stopCh:         make(chan struct{}),
		jobIDs:         make(map[string]cronv3.EntryID),
		syncService:    syncService,
		watchService:   watchService,
		credentialRepo: credentialRepo,
	}
}

// Start initializes and starts the cron manager with leader election
// If k8s is nil, it will start in local mode without leader election
func (cm *CronManager) Start(podName, namespace string) error {
	// If k8s client is nil or we're in local development, start in local mode
	if cm.k8s == nil || os.Getenv("LOCAL_DEV") == "true" {
		cm.log.Info("Starting cron manager in local mode")
		cm.StartCron()
		return nil
	}

	// Create the leader election lock
	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      "mailsync-cron-leader",
			Namespace: namespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: podName,
		},
	}

	// Channel to track leader election errors
	errCh := make(chan error, 1)

	// Start leader election
	go func() {
		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					cm.StartCron()
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.Stop()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		ctx := context.Background()
		le.Run(ctx)
	}()

	// Wait briefly to see if leader election fails immediately
	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		cm.StartCron()
	case <-time.After(5 * time.Second):
		// Leader election seems to be working, continue normally
	}

	return nil
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	// Load cron config from environment variables
	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	// Register heartbeat job
	if cronConfig.CronScheduleHeartbeat != "" {
		podName := os.Getenv("POD_NAME")
		if podName == "" {
			podName = "local"
		}
		id, err := c.AddFunc(cronConfig.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from pod: %s", podName)
		})
		if err != nil {
			cm.log.Fatalf("Could not add heartbeat cron job: %v", err)
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cronConfig.CronScheduleHeartbeat)
	}

	// Register watch renewal sweep
	if cronConfig.CronScheduleRenewWatches != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleRenewWatches, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupMailsync].Lock()
			defer jobLocks.locks[GroupMailsync].Unlock()
			cm.renewWatches()
		})
		if err != nil {
			cm.log.Fatalf("Could not add watch renewal cron job: %v", err)
		}
		cm.jobIDs["renew_watches"] = id
		cm.log.Infof("Registered watch renewal job with schedule: %s", cronConfig.CronScheduleRenewWatches)
	}

	// Register reconcile sync job
	if cronConfig.CronScheduleReconcileSync != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleReconcileSync, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupMailsync].Lock()
			defer jobLocks.locks[GroupMailsync].Unlock()
			cm.reconcileSync()
		})
		if err != nil {
			cm.log.Fatalf("Could not add reconcile sync cron job: %v", err)
		}
		cm.jobIDs["reconcile_sync"] = id
		cm.log.Infof("Registered reconcile sync job with schedule: %s", cronConfig.CronScheduleReconcileSync)
	}
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	// Create a new cron with seconds field enabled and panic recovery
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger), // Skip if still running
			cronv3.Recover(cronv3.DefaultLogger),            // Default recovery as backup
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

// renewWatches re-registers push subscriptions that are close to expiring.
// Without this sweep Gmail silently stops delivering notifications after
// seven days.
func (cm *CronManager) renewWatches() {
	cm.log.Info("Running watch subscription renewal sweep")

	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.renewWatches")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	if err := cm.watchService.RenewAll(ctx); err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to renew watch subscriptions: %v", err)
		return
	}

	cm.log.Info("Successfully completed watch renewal sweep")
}

// reconcileSync runs a scheduled pass over every mailbox with stored
// credentials, catching anything push notifications missed.
func (cm *CronManager) reconcileSync() {
	cm.log.Info("Running scheduled mailbox reconcile sync")

	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.reconcileSync")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	userEmails, err := cm.credentialRepo.ListUserEmails(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to list mailboxes for reconcile sync: %v", err)
		return
	}

	ctx = utils.WithSyncTrigger(ctx, enum.SyncTriggerScheduled)
	synced := 0
	for _, userEmail := range userEmails {
		emails, err := cm.syncService.Sync(ctx, userEmail)
		if err != nil {
			cm.log.Errorf("Reconcile sync failed for %s: %v", userEmail, err)
			continue
		}
		synced += len(emails)
	}

	span.LogKV("mailboxes", len(userEmails), "synced", synced)
	cm.log.Infof("Reconcile sync completed: %d mailboxes, %d emails", len(userEmails), synced)
}
