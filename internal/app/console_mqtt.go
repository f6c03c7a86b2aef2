package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/gesture_sampler/internal/accel"
	"github.com/relabs-tech/gesture_sampler/internal/config"
	"github.com/relabs-tech/gesture_sampler/internal/orientation"
)

// RunConsoleMQTT prints a summary of every window published on the window
// topic until ctx is done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, out io.Writer, log *zap.Logger) error {
	client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Info("console: connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))

	token := client.Subscribe(cfg.TopicWindow, 0, windowPrinter(out, log))
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Info("console: subscribed", zap.String("topic", cfg.TopicWindow))

	<-ctx.Done()
	log.Info("console: shutting down")
	return nil
}

// windowPrinter decodes each window message and prints it as one line.
// Malformed payloads are logged and skipped.
func windowPrinter(out io.Writer, log *zap.Logger) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var w Window
		if err := json.Unmarshal(msg.Payload(), &w); err != nil {
			log.Warn("console: window unmarshal error", zap.String("topic", msg.Topic()), zap.Error(err))
			return
		}
		fmt.Fprintln(out, FormatWindow(w))
	}
}

// FormatWindow renders a window as one console line, with the tilt of
// the newest reading.
func FormatWindow(w Window) string {
	x, y, z := w.Newest()
	pose := orientation.FromAccel(accel.Triple{X: x, Y: y, Z: z})
	return fmt.Sprintf(
		"[WIN %6d] n=%3d f=%d peak=%6.2f  newest x=%7.3f y=%7.3f z=%7.3f  ROLL=%6.1f PITCH=%6.1f",
		w.Seq, w.Triples(), w.Factor, w.PeakMagnitude(), x, y, z, pose.Roll, pose.Pitch,
	)
}
