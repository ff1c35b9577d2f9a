package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Watch subscription renewal sweep, every hour
	CronScheduleRenewWatches string `env:"CRON_SCHEDULE_RENEW_WATCHES" envDefault:"0 0 * * * *"`
	// Reconcile sync over all known mailboxes, every 15 minutes
	CronScheduleReconcileSync string `env:"CRON_SCHEDULE_RECONCILE_SYNC" envDefault:"0 */15 * * * *"`
}
