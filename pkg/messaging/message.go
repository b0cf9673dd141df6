package messaging

const (
	AndroidPriorityNormal AndroidPriority = "NORMAL"
	AndroidPriorityHigh   AndroidPriority = "HIGH"
)

// AndroidPriority values:
// https://firebase.google.com/docs/reference/fcm/rest/v1/projects.messages#androidmessagepriority
type AndroidPriority string

// Message is one FCM v1 send payload. Exactly one of Token, Topic or
// Condition selects the target. Field-level validation is the backend's
// job; the client only rejects a nil message.
//
// Format:
// https://firebase.google.com/docs/reference/fcm/rest/v1/projects.messages#Message
type Message struct {
	Name         string            `json:"name,omitempty"`
	Token        string            `json:"token,omitempty"`
	Topic        string            `json:"topic,omitempty"`
	Condition    string            `json:"condition,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
	Notification *Notification     `json:"notification,omitempty"`
	Android      *AndroidConfig    `json:"android,omitempty"`
	Webpush      *WebpushConfig    `json:"webpush,omitempty"`
	APNS         *APNSConfig       `json:"apns,omitempty"`
	FCMOptions   *FCMOptions       `json:"fcm_options,omitempty"`
}

// Notification is the basic cross-platform notification block.
type Notification struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
	Image string `json:"image,omitempty"`
}

// AndroidConfig format:
// https://firebase.google.com/docs/reference/fcm/rest/v1/projects.messages#androidconfig
type AndroidConfig struct {
	CollapseKey           string               `json:"collapse_key,omitempty"`
	Priority              AndroidPriority      `json:"priority,omitempty"`
	TTL                   string               `json:"ttl,omitempty"`
	RestrictedPackageName string               `json:"restricted_package_name,omitempty"`
	Data                  map[string]string    `json:"data,omitempty"`
	Notification          *AndroidNotification `json:"notification,omitempty"`
	FCMOptions            *AndroidFCMOptions   `json:"fcm_options,omitempty"`
}

// AndroidNotification format:
// https://firebase.google.com/docs/reference/fcm/rest/v1/projects.messages#androidnotification
type AndroidNotification struct {
	Title        string   `json:"title,omitempty"`
	Body         string   `json:"body,omitempty"`
	Icon         string   `json:"icon,omitempty"`
	Color        string   `json:"color,omitempty"`
	Sound        string   `json:"sound,omitempty"`
	Tag          string   `json:"tag,omitempty"`
	ClickAction  string   `json:"click_action,omitempty"`
	BodyLocKey   string   `json:"body_loc_key,omitempty"`
	BodyLocArgs  []string `json:"body_loc_args,omitempty"`
	TitleLocKey  string   `json:"title_loc_key,omitempty"`
	TitleLocArgs []string `json:"title_loc_args,omitempty"`
	ChannelID    string   `json:"channel_id,omitempty"`
	Image        string   `json:"image,omitempty"`
}

type AndroidFCMOptions struct {
	AnalyticsLabel string `json:"analytics_label,omitempty"`
}

// WebpushConfig format:
// https://firebase.google.com/docs/reference/fcm/rest/v1/projects.messages#webpushconfig
type WebpushConfig struct {
	Headers      map[string]string      `json:"headers,omitempty"`
	Data         map[string]string      `json:"data,omitempty"`
	Notification map[string]interface{} `json:"notification,omitempty"`
	FCMOptions   *WebpushFCMOptions     `json:"fcm_options,omitempty"`
}

type WebpushFCMOptions struct {
	Link string `json:"link,omitempty"`
}

// APNSConfig format:
// https://firebase.google.com/docs/reference/fcm/rest/v1/projects.messages#apnsconfig
type APNSConfig struct {
	Headers    map[string]string      `json:"headers,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	FCMOptions *APNSFCMOptions        `json:"fcm_options,omitempty"`
}

type APNSFCMOptions struct {
	AnalyticsLabel string `json:"analytics_label,omitempty"`
	Image          string `json:"image,omitempty"`
}

type FCMOptions struct {
	AnalyticsLabel string `json:"analytics_label,omitempty"`
}
