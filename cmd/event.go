package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/access-control/internal/core/events"
	"github.com/frahmantamala/access-control/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Inspect the authorization events and push test events through the audit log`,
}

var listEventsCmd = &cobra.Command{
	Use:   "list",
	Short: "List the event types published by the service",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range events.AllAuthzEventTypes {
			fmt.Println(t)
		}
	},
}

var publishEventCmd = &cobra.Command{
	Use:       "publish [event-type]",
	Short:     "Publish a test event",
	Long:      `Publish a test event through the audit logger for debugging log pipelines`,
	ValidArgs: events.AllAuthzEventTypes,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		publishTestEvent(args[0])
	},
}

var eventData string

func publishTestEvent(eventType string) {
	lg := logger.LoggerWrapper()

	bus := events.NewEventBus(lg)
	bus.SubscribeMany(events.AllAuthzEventTypes, events.AuditLogger(lg))
	bus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		lg.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	testEvent := events.BaseEvent{
		ID:        fmt.Sprintf("test-%d", time.Now().Unix()),
		Type:      eventType,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"message": eventData,
			"source":  "cli-command",
		},
	}

	lg.Info("publishing test event", "event_type", eventType, "event_id", testEvent.ID)

	if err := bus.PublishSync(context.Background(), testEvent); err != nil {
		lg.Error("failed to publish event", "error", err)
		return
	}
	lg.Info("test event published successfully")
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "Event data message")

	eventCmd.AddCommand(listEventsCmd)
	eventCmd.AddCommand(publishEventCmd)
}
