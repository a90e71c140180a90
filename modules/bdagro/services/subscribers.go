package services

import (
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/agrotomo/bdagro-sync/pkg/eventbus"
)

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// SubscribeLogging logs pipeline progress. Failures are logged by the stage
// that hit them.
func SubscribeLogging(bus eventbus.EventBus, log *logrus.Entry) {
	bus.Subscribe(func(e EntityDiscovered) {
		log.WithFields(logrus.Fields{
			"client_id":   e.File.ClientID(),
			"client_name": e.File.ClientName(),
			"path":        e.File.Path,
		}).Debug("export file found")
	})
	bus.Subscribe(func(e EntitySkipped) {
		entry := log.WithFields(logrus.Fields{"folder": e.Folder, "reason": e.Reason})
		if e.Reason == SkipNoExportFolder || e.Reason == SkipNoExportFile {
			entry.Warn("client folder skipped")
			return
		}
		entry.Debug("client folder skipped")
	})
	bus.Subscribe(func(e EntityMerged) {
		log.WithFields(logrus.Fields{
			"client_id":   e.Client.ID,
			"client_name": e.Client.Name,
			"rows":        e.Rows,
		}).Info("export file merged")
	})
	bus.Subscribe(func(e StageCompleted) {
		log.WithFields(logrus.Fields{
			"stage":    e.Stage,
			"rows":     e.Rows,
			"duration": e.Duration.String(),
		}).Info("stage completed")
	})
	bus.Subscribe(func(e RowsDeleted) {
		log.WithFields(logrus.Fields{"table": e.Target, "rows": e.Count}).Info("rows deleted")
	})
	bus.Subscribe(func(e RowsInserted) {
		log.WithFields(logrus.Fields{"table": e.Target, "rows": e.Count}).Info("rows inserted")
	})
}
