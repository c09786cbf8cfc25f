package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type FeatureItem struct {
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

type ProcessStep struct {
	Step  string `json:"step"`
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

type FAQItem struct {
	Q string `json:"q"`
	A string `json:"a"`
}

type SiteSettings struct {
	SiteName         string        `json:"site_name"`
	LogoURL          string        `json:"logo_url,omitempty"`
	HeroHeadline     string        `json:"hero_headline"`
	HeroSubheadline  string        `json:"hero_subheadline"`
	ContactPhone     string        `json:"contact_phone"`
	ContactEmail     string        `json:"contact_email"`
	Location         string        `json:"location"`
	TikTokURL        string        `json:"tiktok_url"`
	InstagramURL     string        `json:"instagram_url"`
	FacebookURL      string        `json:"facebook_url"`
	FooterAboutText  string        `json:"footer_about_text"`
	ShowTestimonials bool          `json:"show_testimonials"`
	ShowFAQ          bool          `json:"show_faq"`
	ShowFeatures     bool          `json:"show_features"`
	Features         []FeatureItem `json:"features"`
	Process          []ProcessStep `json:"process"`
	FAQs             []FAQItem     `json:"faqs"`
	MetaTitle        string        `json:"meta_title"`
	MetaDescription  string        `json:"meta_description"`
}

func DefaultSettings() SiteSettings {
	return SiteSettings{
		SiteName:         "TeetotPrint",
		HeroHeadline:     "Your Vision, Professionally Printed.",
		HeroSubheadline:  "Premium custom apparel and merchandise delivered to your door. From single pieces to bulk corporate orders.",
		ContactPhone:     "0244907853",
		ContactEmail:     "teetotptint@gmail.com",
		Location:         "Off Teshie Century Road, Accra, Ghana",
		ShowTestimonials: true,
		ShowFAQ:          true,
		ShowFeatures:     true,
		Features:         []FeatureItem{},
		Process:          []ProcessStep{},
		FAQs:             []FAQItem{},
		MetaTitle:        "TeetotPrint | Print That Speaks - Premium POD & Custom Printing",
		MetaDescription:  `Expert custom printing hub in Teshie. Premium T-shirts, Hoodies, and Mugs with the official "Print That Speaks" quality guarantee.`,
	}
}

var (
	ErrUnknownSettingsUpdate = errors.New("unknown settings update")
	ErrInvalidSettingsUpdate = errors.New("invalid settings update")
)

// SettingsUpdate is one explicit change to SiteSettings. The set of
// implementations is closed to this package.
type SettingsUpdate interface {
	Op() string
	Validate() error
	apply(*SiteSettings)
}

type SetBranding struct {
	SiteName string `json:"site_name"`
	LogoURL  string `json:"logo_url"`
}

type SetHero struct {
	Headline    string `json:"headline"`
	Subheadline string `json:"subheadline"`
}

type SetContact struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Location string `json:"location"`
}

type SetSocialLinks struct {
	TikTokURL    string `json:"tiktok_url"`
	InstagramURL string `json:"instagram_url"`
	FacebookURL  string `json:"facebook_url"`
}

type SetFooterAbout struct {
	Text string `json:"text"`
}

type SetSectionVisibility struct {
	Testimonials bool `json:"testimonials"`
	FAQ          bool `json:"faq"`
	Features     bool `json:"features"`
}

type SetFeatures struct {
	Items []FeatureItem `json:"items"`
}

type SetProcess struct {
	Steps []ProcessStep `json:"steps"`
}

type SetFAQs struct {
	Items []FAQItem `json:"items"`
}

type SetSEO struct {
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
}

func (SetBranding) Op() string          { return "set_branding" }
func (SetHero) Op() string              { return "set_hero" }
func (SetContact) Op() string           { return "set_contact" }
func (SetSocialLinks) Op() string       { return "set_social_links" }
func (SetFooterAbout) Op() string       { return "set_footer_about" }
func (SetSectionVisibility) Op() string { return "set_section_visibility" }
func (SetFeatures) Op() string          { return "set_features" }
func (SetProcess) Op() string           { return "set_process" }
func (SetFAQs) Op() string              { return "set_faqs" }
func (SetSEO) Op() string               { return "set_seo" }

func (u SetBranding) Validate() error {
	if strings.TrimSpace(u.SiteName) == "" {
		return fmt.Errorf("%w: site name is required", ErrInvalidSettingsUpdate)
	}
	return nil
}

func (u SetHero) Validate() error {
	if strings.TrimSpace(u.Headline) == "" {
		return fmt.Errorf("%w: hero headline is required", ErrInvalidSettingsUpdate)
	}
	return nil
}

func (u SetContact) Validate() error {
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return fmt.Errorf("%w: contact email %q is malformed", ErrInvalidSettingsUpdate, u.Email)
	}
	return nil
}

func (SetSocialLinks) Validate() error       { return nil }
func (SetFooterAbout) Validate() error       { return nil }
func (SetSectionVisibility) Validate() error { return nil }
func (SetFeatures) Validate() error          { return nil }
func (SetProcess) Validate() error           { return nil }
func (SetFAQs) Validate() error              { return nil }

func (u SetSEO) Validate() error {
	if strings.TrimSpace(u.MetaTitle) == "" {
		return fmt.Errorf("%w: meta title is required", ErrInvalidSettingsUpdate)
	}
	return nil
}

func (u SetBranding) apply(s *SiteSettings) {
	s.SiteName = u.SiteName
	s.LogoURL = u.LogoURL
}

func (u SetHero) apply(s *SiteSettings) {
	s.HeroHeadline = u.Headline
	s.HeroSubheadline = u.Subheadline
}

func (u SetContact) apply(s *SiteSettings) {
	s.ContactPhone = u.Phone
	s.ContactEmail = u.Email
	s.Location = u.Location
}

func (u SetSocialLinks) apply(s *SiteSettings) {
	s.TikTokURL = u.TikTokURL
	s.InstagramURL = u.InstagramURL
	s.FacebookURL = u.FacebookURL
}

func (u SetFooterAbout) apply(s *SiteSettings) { s.FooterAboutText = u.Text }

func (u SetSectionVisibility) apply(s *SiteSettings) {
	s.ShowTestimonials = u.Testimonials
	s.ShowFAQ = u.FAQ
	s.ShowFeatures = u.Features
}

func (u SetFeatures) apply(s *SiteSettings) { s.Features = append([]FeatureItem{}, u.Items...) }
func (u SetProcess) apply(s *SiteSettings)  { s.Process = append([]ProcessStep{}, u.Steps...) }
func (u SetFAQs) apply(s *SiteSettings)     { s.FAQs = append([]FAQItem{}, u.Items...) }

func (u SetSEO) apply(s *SiteSettings) {
	s.MetaTitle = u.MetaTitle
	s.MetaDescription = u.MetaDescription
}

// ApplySettingsUpdates validates every update and applies them in order to a
// copy of s. Nothing is applied if any update is invalid.
func ApplySettingsUpdates(s SiteSettings, updates ...SettingsUpdate) (SiteSettings, error) {
	for _, u := range updates {
		if err := u.Validate(); err != nil {
			return s, err
		}
	}
	out := s
	for _, u := range updates {
		u.apply(&out)
	}
	return out, nil
}

type settingsUpdateEnvelope struct {
	Op    string          `json:"op"`
	Value json.RawMessage `json:"value"`
}

// DecodeSettingsUpdates parses a JSON array of {"op": ..., "value": {...}}.
func DecodeSettingsUpdates(data []byte) ([]SettingsUpdate, error) {
	var envs []settingsUpdateEnvelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettingsUpdate, err)
	}

	updates := make([]SettingsUpdate, 0, len(envs))
	for _, env := range envs {
		u, err := decodeSettingsUpdate(env)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func decodeSettingsUpdate(env settingsUpdateEnvelope) (SettingsUpdate, error) {
	var u SettingsUpdate
	switch env.Op {
	case "set_branding":
		u = &SetBranding{}
	case "set_hero":
		u = &SetHero{}
	case "set_contact":
		u = &SetContact{}
	case "set_social_links":
		u = &SetSocialLinks{}
	case "set_footer_about":
		u = &SetFooterAbout{}
	case "set_section_visibility":
		u = &SetSectionVisibility{}
	case "set_features":
		u = &SetFeatures{}
	case "set_process":
		u = &SetProcess{}
	case "set_faqs":
		u = &SetFAQs{}
	case "set_seo":
		u = &SetSEO{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSettingsUpdate, env.Op)
	}
	if len(env.Value) == 0 {
		return nil, fmt.Errorf("%w: %s has no value", ErrInvalidSettingsUpdate, env.Op)
	}
	if err := json.Unmarshal(env.Value, u); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSettingsUpdate, env.Op, err)
	}
	return u, nil
}
