package services

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"leguardian-http-service/config"
	"leguardian-http-service/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Topic layout of the device protocol. The second segment is always the
// bracelet unique code.
const (
	// TopicTelemetry receives periodic device heartbeats
	TopicTelemetry = "bracelets/+/telemetry"

	// TopicEvents receives device-reported events
	TopicEvents = "bracelets/+/events"

	// TopicCommandAck receives command execution results
	TopicCommandAck = "bracelets/+/ack"
)

// Wire message structures of the device protocol
type (
	// TelemetryMessage is a periodic heartbeat published by the device
	TelemetryMessage struct {
		BatteryLevel    int      `json:"battery_level"`
		Latitude        *float64 `json:"latitude,omitempty"`
		Longitude       *float64 `json:"longitude,omitempty"`
		Accuracy        *int     `json:"accuracy,omitempty"`
		FirmwareVersion string   `json:"firmware_version,omitempty"`
		Timestamp       int64    `json:"timestamp"`
	}

	// EventMessage is a device-reported event
	EventMessage struct {
		EventType    string                 `json:"event_type"`
		Latitude     *float64               `json:"latitude,omitempty"`
		Longitude    *float64               `json:"longitude,omitempty"`
		Accuracy     *int                   `json:"accuracy,omitempty"`
		BatteryLevel *int                   `json:"battery_level,omitempty"`
		Metadata     map[string]interface{} `json:"metadata,omitempty"`
		Timestamp    int64                  `json:"timestamp"`
	}

	// CommandAckMessage is the device's execution result for a command
	CommandAckMessage struct {
		CommandID uint   `json:"command_id"`
		Status    string `json:"status"`
		Error     string `json:"error,omitempty"`
		Timestamp int64  `json:"timestamp"`
	}
)

// InterfaceMQTTService defines the MQTT broker link interface
type InterfaceMQTTService interface {
	Connect() error
	Disconnect()
	SubscribeToTopics() error
	PublishCommand(braceletCode string, payload map[string]interface{}) error
}

// MQTTService maintains the broker connection and bridges device topics
// to the telemetry and command services
type MQTTService struct {
	DB             *gorm.DB
	Config         *config.Config
	Device         InterfaceDeviceService
	Command        InterfaceCommandService
	Client         mqtt.Client
	IsConnected    bool
	connectedMutex sync.RWMutex
	TopicHandlers  map[string]mqtt.MessageHandler
	PublishMutex   sync.Mutex
}

// NewMQTTService creates a new MQTT service
func NewMQTTService(db *gorm.DB, cfg *config.Config, device InterfaceDeviceService, command InterfaceCommandService) *MQTTService {
	service := &MQTTService{
		DB:      db,
		Config:  cfg,
		Device:  device,
		Command: command,
	}

	service.setupMQTTClient()
	service.setupTopicHandlers()

	return service
}

// setupMQTTClient configures the paho client
func (s *MQTTService) setupMQTTClient() {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.Config.MQTTBrokerURL)
	// Unique client ID so several service instances can share a broker
	opts.SetClientID(fmt.Sprintf("%s-%s-%d", s.Config.MQTTClientID, uuid.New().String()[:8], time.Now().UnixNano()))
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Second * 30)
	opts.SetKeepAlive(time.Second * 60)
	opts.SetPingTimeout(time.Second * 10)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(true)

	opts.SetDefaultPublishHandler(func(client mqtt.Client, msg mqtt.Message) {
		config.Warning("[MQTT] Unhandled message: topic=%s", msg.Topic())
	})

	if s.Config.MQTTUsername != "" {
		opts.SetUsername(s.Config.MQTTUsername)
		opts.SetPassword(s.Config.MQTTPassword)
	}

	if strings.HasPrefix(s.Config.MQTTBrokerURL, "ssl://") || strings.HasPrefix(s.Config.MQTTBrokerURL, "tls://") || s.Config.MQTTSSLEnabled {
		config.Info("[MQTT] Using TLS connection")
		tlsConfig := &tls.Config{
			InsecureSkipVerify: true,
		}
		if s.Config.MQTTCACertPath != "" {
			config.Info("[MQTT] CA certificate configured: %s", s.Config.MQTTCACertPath)
		}
		opts.SetTLSConfig(tlsConfig)
	}

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		config.Warning("[MQTT] Connection lost: %v", err)
		s.connectedMutex.Lock()
		s.IsConnected = false
		s.connectedMutex.Unlock()
	})

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		config.Info("[MQTT] Connected to %s", s.Config.MQTTBrokerURL)
		s.connectedMutex.Lock()
		s.IsConnected = true
		s.connectedMutex.Unlock()

		if err := s.SubscribeToTopics(); err != nil {
			config.Error("[MQTT] Topic subscription failed: %v", err)
		}
	})

	opts.SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
		config.Info("[MQTT] Reconnecting...")
	})

	s.Client = mqtt.NewClient(opts)
}

// setupTopicHandlers maps device topics to their handlers
func (s *MQTTService) setupTopicHandlers() {
	s.TopicHandlers = map[string]mqtt.MessageHandler{
		TopicTelemetry:  s.handleTelemetry,
		TopicEvents:     s.handleEvent,
		TopicCommandAck: s.handleCommandAck,
	}
}

// Connect connects to the broker with exponential backoff
func (s *MQTTService) Connect() error {
	config.Info("[MQTT] Connecting to %s...", s.Config.MQTTBrokerURL)

	s.PublishMutex.Lock()
	defer s.PublishMutex.Unlock()

	s.connectedMutex.RLock()
	isConnected := s.IsConnected && s.Client.IsConnected()
	s.connectedMutex.RUnlock()

	if isConnected {
		return nil
	}

	maxRetries := 5
	var err error

	for i := 0; i < maxRetries; i++ {
		token := s.Client.Connect()
		if token.WaitTimeout(5*time.Second) && token.Error() == nil {
			s.connectedMutex.Lock()
			s.IsConnected = true
			s.connectedMutex.Unlock()
			config.Info("[MQTT] Connected to %s", s.Config.MQTTBrokerURL)
			return nil
		}

		err = token.Error()
		backoffTime := time.Duration(1<<uint(i)) * time.Second
		config.Warning("[MQTT] Connect attempt %d/%d failed: %v, retrying in %v", i+1, maxRetries, err, backoffTime)
		time.Sleep(backoffTime)
	}

	return fmt.Errorf("[MQTT] connection failed after %d attempts: %v", maxRetries, err)
}

// Disconnect closes the broker connection
func (s *MQTTService) Disconnect() {
	if s.Client != nil && s.Client.IsConnected() {
		s.Client.Disconnect(250)
	}
}

// SubscribeToTopics subscribes to all device topics at QoS 1
func (s *MQTTService) SubscribeToTopics() error {
	qos := byte(1)

	for topic, handler := range s.TopicHandlers {
		if token := s.Client.Subscribe(topic, qos, handler); token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribe failed [%s]: %v", topic, token.Error())
		}
		config.Info("[MQTT] Subscribed to topic: %s", topic)
	}
	return nil
}

// braceletCodeFromTopic extracts the bracelet code from a device topic
// such as bracelets/LG-XXXX-YYYY/telemetry
func braceletCodeFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 || parts[0] != "bracelets" {
		return ""
	}
	return parts[1]
}

// PublishCommand publishes a command payload to a bracelet's command topic
func (s *MQTTService) PublishCommand(braceletCode string, payload map[string]interface{}) error {
	topic := fmt.Sprintf("bracelets/%s/commands", braceletCode)
	return s.publishMessage(topic, payload)
}

// publishMessage publishes a message at QoS 1 with a bounded wait
func (s *MQTTService) publishMessage(topic string, payload interface{}) error {
	s.PublishMutex.Lock()
	defer s.PublishMutex.Unlock()

	s.connectedMutex.RLock()
	isConnected := s.IsConnected && s.Client.IsConnected()
	s.connectedMutex.RUnlock()

	if !isConnected {
		return fmt.Errorf("MQTT client not connected")
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message: %v", err)
	}

	token := s.Client.Publish(topic, 1, false, jsonData)
	if !token.WaitTimeout(3 * time.Second) {
		return fmt.Errorf("publish timed out")
	}
	if token.Error() != nil {
		return fmt.Errorf("publish failed: %v", token.Error())
	}

	config.Info("[MQTT] Published message to topic: %s", topic)
	return nil
}

// handleTelemetry processes a device heartbeat
func (s *MQTTService) handleTelemetry(_ mqtt.Client, msg mqtt.Message) {
	defer func() {
		if r := recover(); r != nil {
			config.Error("[MQTT] Telemetry handler panic: %v", r)
		}
	}()

	code := braceletCodeFromTopic(msg.Topic())
	if code == "" {
		config.Warning("[MQTT] Telemetry on malformed topic: %s", msg.Topic())
		return
	}

	var telemetry TelemetryMessage
	if err := json.Unmarshal(msg.Payload(), &telemetry); err != nil {
		config.Error("[MQTT] Failed to parse telemetry from %s: %v", code, err)
		return
	}

	_, _, err := s.Device.ProcessHeartbeat(code, HeartbeatInput{
		BatteryLevel:    telemetry.BatteryLevel,
		Latitude:        telemetry.Latitude,
		Longitude:       telemetry.Longitude,
		Accuracy:        telemetry.Accuracy,
		FirmwareVersion: telemetry.FirmwareVersion,
	})
	if err != nil {
		config.Error("[MQTT] Failed to process telemetry from %s: %v", code, err)
	}
}

// handleEvent processes a device-reported event
func (s *MQTTService) handleEvent(_ mqtt.Client, msg mqtt.Message) {
	defer func() {
		if r := recover(); r != nil {
			config.Error("[MQTT] Event handler panic: %v", r)
		}
	}()

	code := braceletCodeFromTopic(msg.Topic())
	if code == "" {
		config.Warning("[MQTT] Event on malformed topic: %s", msg.Topic())
		return
	}

	var event EventMessage
	if err := json.Unmarshal(msg.Payload(), &event); err != nil {
		config.Error("[MQTT] Failed to parse event from %s: %v", code, err)
		return
	}

	_, err := s.Device.ProcessEvent(code, EventInput{
		EventType:    models.EventType(event.EventType),
		Latitude:     event.Latitude,
		Longitude:    event.Longitude,
		Accuracy:     event.Accuracy,
		BatteryLevel: event.BatteryLevel,
		Metadata:     models.JSONMap(event.Metadata),
	})
	if err != nil {
		config.Error("[MQTT] Failed to process %s event from %s: %v", event.EventType, code, err)
	}
}

// handleCommandAck processes a command execution result
func (s *MQTTService) handleCommandAck(_ mqtt.Client, msg mqtt.Message) {
	defer func() {
		if r := recover(); r != nil {
			config.Error("[MQTT] Ack handler panic: %v", r)
		}
	}()

	code := braceletCodeFromTopic(msg.Topic())
	if code == "" {
		config.Warning("[MQTT] Ack on malformed topic: %s", msg.Topic())
		return
	}

	var ack CommandAckMessage
	if err := json.Unmarshal(msg.Payload(), &ack); err != nil {
		config.Error("[MQTT] Failed to parse ack from %s: %v", code, err)
		return
	}

	bracelet, err := s.Device.ResolveByCode(code)
	if err != nil {
		config.Error("[MQTT] Ack from unknown bracelet %s: %v", code, err)
		return
	}

	success := ack.Status == string(models.CommandStatusExecuted)
	if _, err := s.Command.Acknowledge(bracelet.ID, ack.CommandID, success, ack.Error); err != nil {
		config.Error("[MQTT] Failed to acknowledge command %d from %s: %v", ack.CommandID, code, err)
	}
}
