package clientdata

import (
	"github.com/rs/zerolog"
)

// Purger drops expired cache entries.
type Purger interface {
	Purge() (map[string]int64, error)
}

// PurgeJob drops expired cache entries on a schedule.
type PurgeJob struct {
	cache Purger
	log   zerolog.Logger
}

// NewPurgeJob creates the purge job.
func NewPurgeJob(cache Purger, log zerolog.Logger) *PurgeJob {
	return &PurgeJob{
		cache: cache,
		log:   log.With().Str("job", "client_data_purge").Logger(),
	}
}

// Run purges every table and logs what was dropped.
func (j *PurgeJob) Run() error {
	purged, err := j.cache.Purge()
	if err != nil {
		return err
	}

	event := j.log.Info()
	var total int64
	for table, n := range purged {
		event = event.Int64(table, n)
		total += n
	}
	event.Int64("total", total).Msg("Client data purged")
	return nil
}

// Name returns the job name.
func (j *PurgeJob) Name() string {
	return "client_data_purge"
}
