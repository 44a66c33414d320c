package entity

import "errors"

var ErrUnsupportedCaptcha = errors.New("unsupported captcha kind")

type CaptchaKind string

const (
	CaptchaNone         CaptchaKind = "none"
	CaptchaRecaptchaV2  CaptchaKind = "recaptcha_v2"
	CaptchaRecaptchaV3  CaptchaKind = "recaptcha_v3"
	CaptchaFunCaptcha   CaptchaKind = "funcaptcha"
	CaptchaGeeTest      CaptchaKind = "geetest"
	CaptchaKeyCaptcha   CaptchaKind = "keycaptcha"
	CaptchaCapy         CaptchaKind = "capy"
	CaptchaCanvasLike   CaptchaKind = "canvas_like"
	CaptchaNormalImage  CaptchaKind = "normal_image"
	CaptchaTextQuestion CaptchaKind = "text_question"
)

func (k CaptchaKind) IsRecaptcha() bool {
	return k == CaptchaRecaptchaV2 || k == CaptchaRecaptchaV3
}

// CaptchaDescriptor describes a detected challenge. Only the payload fields
// relevant to Kind are set.
type CaptchaDescriptor struct {
	Kind     CaptchaKind
	SiteKey  string
	ImageSrc string
	Question string
}

func (d CaptchaDescriptor) Present() bool {
	return d.Kind != "" && d.Kind != CaptchaNone
}

// CaptchaRequest is what the solving service receives.
type CaptchaRequest struct {
	Kind      CaptchaKind
	SiteKey   string
	PageURL   string
	ImagePath string
	Question  string
}

type CaptchaSolution struct {
	Kind  CaptchaKind
	Token string
}
