// Package mqtt exposes the panel on an MQTT broker.
//
// Topics, relative to the configured prefix:
//
//	power/set        ON or OFF (command)
//	brightness/set   0-1000 (command)
//	power            ON or OFF (retained state)
//	brightness       current brightness (retained state)
//	availability     online or offline (retained, offline is the will)
package mqtt

import (
	"context"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"flatpanel/host/panel"
)

const (
	publishTimeout = 5 * time.Second
	commandTimeout = 5 * time.Second
)

// Config holds the broker settings
type Config struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// Bridge forwards MQTT commands to the panel and publishes its state
type Bridge struct {
	client mqtt.Client
	dev    panel.Device
	prefix string
}

// NewBridge configures a client for the broker. Call Connect to start it.
func NewBridge(cfg Config, dev panel.Device) *Bridge {
	prefix := strings.TrimSuffix(cfg.TopicPrefix, "/")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetKeepAlive(10 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetWill(prefix+"/availability", "offline", 1, true)

	b := &Bridge{dev: dev, prefix: prefix}
	opts.SetOnConnectHandler(b.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		glog.Warningf("mqtt connection lost: %v", err)
	})
	b.client = mqtt.NewClient(opts)
	return b
}

// Connect starts connecting to the broker and returns immediately. The
// client keeps retrying in the background until Disconnect.
func (b *Bridge) Connect() {
	glog.Infof("connecting to mqtt broker")
	token := b.client.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			glog.Warningf("mqtt connect: %v", token.Error())
		}
	}()
}

// Disconnect publishes offline and closes the connection. It also stops a
// connection attempt still in progress.
func (b *Bridge) Disconnect() {
	if b.client.IsConnected() {
		b.publish("availability", "offline")
	}
	b.client.Disconnect(250)
	glog.Info("mqtt disconnected")
}

// Device returns the panel wrapped so that changes made through it are
// published. Schedules and scripts use it.
func (b *Bridge) Device() panel.Device {
	return trackedDevice{Device: b.dev, bridge: b}
}

// PublishState publishes the panel's power and brightness
func (b *Bridge) PublishState() {
	if !b.client.IsConnected() {
		return
	}
	power := "OFF"
	if b.dev.State() == panel.StateReady {
		power = "ON"
	}
	b.publish("power", power)
	b.publish("brightness", strconv.Itoa(b.dev.Brightness()))
}

func (b *Bridge) topic(sub string) string {
	return b.prefix + "/" + sub
}

func (b *Bridge) publish(sub, payload string) {
	topic := b.topic(sub)
	token := b.client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		glog.Warningf("timeout publishing to %s", topic)
		return
	}
	if err := token.Error(); err != nil {
		glog.Warningf("publish to %s: %v", topic, err)
	}
}

func (b *Bridge) onConnect(client mqtt.Client) {
	glog.Info("mqtt connected")

	handlers := map[string]mqtt.MessageHandler{
		"power/set":      b.handlePower,
		"brightness/set": b.handleBrightness,
	}
	for sub, handler := range handlers {
		topic := b.topic(sub)
		if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			glog.Errorf("subscribe %s: %v", topic, token.Error())
			continue
		}
		glog.V(1).Infof("subscribed to %s", topic)
	}

	b.publish("availability", "online")
	b.PublishState()
}

func (b *Bridge) handlePower(_ mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch payload := strings.ToUpper(strings.TrimSpace(string(msg.Payload()))); payload {
	case "ON":
		err = b.dev.On(ctx)
	case "OFF":
		err = b.dev.Off(ctx)
	default:
		glog.Warningf("ignoring power payload %q", payload)
		return
	}
	if err != nil {
		glog.Errorf("power command: %v", err)
	}
	b.PublishState()
}

func (b *Bridge) handleBrightness(_ mqtt.Client, msg mqtt.Message) {
	payload := strings.TrimSpace(string(msg.Payload()))
	level, err := strconv.Atoi(payload)
	if err != nil {
		glog.Warningf("ignoring brightness payload %q", payload)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := b.dev.SetBrightness(ctx, level); err != nil {
		glog.Errorf("brightness command: %v", err)
	}
	b.PublishState()
}

type trackedDevice struct {
	panel.Device
	bridge *Bridge
}

func (d trackedDevice) On(ctx context.Context) error {
	defer d.bridge.PublishState()
	return d.Device.On(ctx)
}

func (d trackedDevice) Off(ctx context.Context) error {
	defer d.bridge.PublishState()
	return d.Device.Off(ctx)
}

func (d trackedDevice) SetBrightness(ctx context.Context, level int) error {
	defer d.bridge.PublishState()
	return d.Device.SetBrightness(ctx, level)
}
