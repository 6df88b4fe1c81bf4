package job

import (
	"github.com/userhub/userhub/database"
	"github.com/userhub/userhub/logger"
	"github.com/userhub/userhub/util/common"

	"gorm.io/gorm"
)

// CheckpointJob periodically folds the sqlite write-ahead log back into the database file.
type CheckpointJob struct {
	db *gorm.DB
}

func NewCheckpointJob(db *gorm.DB) *CheckpointJob {
	return &CheckpointJob{db: db}
}

// Run is called by the cron scheduler.
func (j *CheckpointJob) Run() {
	defer common.Recover("checkpoint job")

	if err := database.Checkpoint(j.db); err != nil {
		logger.Warning("checkpoint job err:", err)
		return
	}
	logger.Debug("wal checkpoint done")
}
