package event

// Effect is a side effect requested by the chat core and executed by the
// embedding UI. The core itself never plays sounds or shows banners, which
// keeps every state transition testable.
type Effect interface {
	isEffect()
}

type PlaySound struct {
	Sound string
}

func (PlaySound) isEffect() {}

type BannerLevel string

const (
	BannerInfo  BannerLevel = "info"
	BannerWarn  BannerLevel = "warn"
	BannerError BannerLevel = "error"
)

// ShowBanner surfaces a non-fatal notification: server rejections,
// transport hiccups, user-input mistakes.
type ShowBanner struct {
	Level BannerLevel
	Text  string
}

func (ShowBanner) isEffect() {}
