package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"leguardian-http-service/config"
	"leguardian-http-service/models"

	"gorm.io/gorm"
)

// InterfaceNotificationService defines the push notification service interface
type InterfaceNotificationService interface {
	NotifyZoneTransition(bracelet *models.Bracelet, zone *models.SafetyZone, transition models.EventType)
	NotifyEvent(bracelet *models.Bracelet, event *models.BraceletEvent)
	NotifyInvitation(bracelet *models.Bracelet, from *models.Guardian, to *models.Guardian)
	SendToTokens(tokens []string, title, body string, data map[string]interface{}) error
}

// NotificationService routes push notifications to guardian phones
// through the Expo push gateway
type NotificationService struct {
	DB     *gorm.DB
	Config *config.Config
	Client *http.Client
}

// expoPushMessage is the Expo push API message format
type expoPushMessage struct {
	To    string                 `json:"to"`
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Sound string                 `json:"sound"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// NewNotificationService creates a new notification service
func NewNotificationService(db *gorm.DB, cfg *config.Config) InterfaceNotificationService {
	return &NotificationService{
		DB:     db,
		Config: cfg,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// recipientTokens returns the push tokens of accepted guardians of a
// bracelet holding the given capability. Guardians without a registered
// token are skipped.
func (s *NotificationService) recipientTokens(braceletID uint, cap models.Capability) ([]string, error) {
	var links []models.BraceletGuardian
	query := s.DB.Preload("Guardian").
		Where("bracelet_id = ? AND accepted_at IS NOT NULL", braceletID)

	if err := query.Find(&links).Error; err != nil {
		return nil, err
	}

	var tokens []string
	for i := range links {
		link := &links[i]
		if !link.HasCapability(cap) {
			continue
		}
		if link.Guardian == nil || link.Guardian.ExpoPushToken == "" {
			continue
		}
		tokens = append(tokens, link.Guardian.ExpoPushToken)
	}
	return tokens, nil
}

// NotifyZoneTransition notifies guardians that a bracelet entered or left
// a safety zone. Zone transitions reveal where the child is, so only
// guardians holding can_view_location receive them. Runs in the background
// so the device telemetry path is never blocked on the push gateway.
func (s *NotificationService) NotifyZoneTransition(bracelet *models.Bracelet, zone *models.SafetyZone, transition models.EventType) {
	name := bracelet.DisplayName()

	var title, body string
	if transition == models.EventZoneEntry {
		title = "Zone de sécurité"
		body = fmt.Sprintf("%s est entré dans la zone \"%s\"", name, zone.Name)
	} else {
		title = "Zone de sécurité"
		body = fmt.Sprintf("%s a quitté la zone \"%s\"", name, zone.Name)
	}

	data := map[string]interface{}{
		"bracelet_id": bracelet.ID,
		"zone_id":     zone.ID,
		"type":        string(transition),
	}

	go s.notify(bracelet.ID, models.CapViewLocation, title, body, data)
}

// NotifyEvent notifies guardians of a bracelet event
func (s *NotificationService) NotifyEvent(bracelet *models.Bracelet, event *models.BraceletEvent) {
	name := bracelet.DisplayName()

	var title, body string
	switch event.EventType {
	case models.EventDanger:
		title = "Alerte danger"
		body = fmt.Sprintf("%s a déclenché une alerte danger !", name)
	case models.EventLost:
		title = "Alerte"
		body = fmt.Sprintf("%s semble perdu", name)
	case models.EventArrived:
		title = "Arrivée"
		body = fmt.Sprintf("%s est bien arrivé à destination", name)
	default:
		// Heartbeats and zone transitions are handled elsewhere
		return
	}

	data := map[string]interface{}{
		"bracelet_id": bracelet.ID,
		"event_id":    event.ID,
		"type":        string(event.EventType),
	}

	go s.notify(bracelet.ID, models.CapViewEvents, title, body, data)
}

// NotifyInvitation notifies a guardian that a bracelet was shared with them
func (s *NotificationService) NotifyInvitation(bracelet *models.Bracelet, from *models.Guardian, to *models.Guardian) {
	if to.ExpoPushToken == "" {
		return
	}

	title := "Invitation"
	body := fmt.Sprintf("%s souhaite partager le bracelet de %s avec vous", from.Name, bracelet.DisplayName())
	data := map[string]interface{}{
		"bracelet_id": bracelet.ID,
		"type":        "invitation",
	}

	go func() {
		if err := s.SendToTokens([]string{to.ExpoPushToken}, title, body, data); err != nil {
			config.Error("Failed to send invitation notification: %v", err)
		}
	}()
}

func (s *NotificationService) notify(braceletID uint, cap models.Capability, title, body string, data map[string]interface{}) {
	tokens, err := s.recipientTokens(braceletID, cap)
	if err != nil {
		config.Error("Failed to resolve notification recipients for bracelet %d: %v", braceletID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	if err := s.SendToTokens(tokens, title, body, data); err != nil {
		config.Error("Failed to send push notification for bracelet %d: %v", braceletID, err)
	}
}

// SendToTokens sends one push message per token in a single batch request
func (s *NotificationService) SendToTokens(tokens []string, title, body string, data map[string]interface{}) error {
	if len(tokens) == 0 {
		return nil
	}

	messages := make([]expoPushMessage, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, expoPushMessage{
			To:    token,
			Title: title,
			Body:  body,
			Sound: "default",
			Data:  data,
		})
	}

	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode push messages: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.Config.ExpoPushURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}

	config.Info("Sent %d push notifications: %s", len(messages), title)
	return nil
}
