// Package retention prunes old call logs on a cron schedule, by age and
// by total record count, with optional JSON archiving before deletion.
package retention
