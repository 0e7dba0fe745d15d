package domain

import "time"

const (
	// MaxRecentImages を超えた分は古いものから捨てます。
	MaxRecentImages = 20
	// DefaultTotalTokens はセッション開始時のトークン総量です。
	DefaultTotalTokens = 1000
)

// Theme は UI テーマの保存値です。
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// RecentImage は履歴 1 件分です。URL には data URL を保持します。
type RecentImage struct {
	ID          string      `json:"id"`
	URL         string      `json:"url"`
	Prompt      string      `json:"prompt"`
	Timestamp   time.Time   `json:"timestamp"`
	AspectRatio AspectRatio `json:"aspectRatio"`
}

// SessionState はストレージに保存されるセッション全体の状態です。
// コアはこの値を受け渡すだけで、保存媒体には直接触れません。
type SessionState struct {
	UsedTokens     int           `json:"usedTokens"`
	TotalTokens    int           `json:"totalTokens"`
	GeneratedCount int           `json:"generatedCount"`
	RecentImages   []RecentImage `json:"recentImages"`
	Theme          Theme         `json:"theme"`
	CredentialBlob string        `json:"credentialBlob,omitempty"`
}

// NewSessionState は初期状態を返します。
func NewSessionState() *SessionState {
	return &SessionState{
		TotalTokens: DefaultTotalTokens,
		Theme:       ThemeDark,
	}
}

// Normalize は読み込んだ値の欠損や範囲外を補正します。
func (s *SessionState) Normalize() {
	if s.TotalTokens <= 0 {
		s.TotalTokens = DefaultTotalTokens
	}
	if s.UsedTokens < 0 {
		s.UsedTokens = 0
	}
	if s.UsedTokens > s.TotalTokens {
		s.UsedTokens = s.TotalTokens
	}
	if s.Theme != ThemeLight {
		s.Theme = ThemeDark
	}
	if len(s.RecentImages) > MaxRecentImages {
		s.RecentImages = s.RecentImages[:MaxRecentImages]
	}
}

// AddRecent は新しい画像を先頭に追加し、上限を超えた古いものを削除します。
// images は新しい順ではなく生成順で渡してください。
func (s *SessionState) AddRecent(images ...RecentImage) {
	if len(images) == 0 {
		return
	}
	merged := make([]RecentImage, 0, len(images)+len(s.RecentImages))
	merged = append(merged, images...)
	merged = append(merged, s.RecentImages...)
	if len(merged) > MaxRecentImages {
		merged = merged[:MaxRecentImages]
	}
	s.RecentImages = merged
}

// ClearRecent は履歴をすべて削除します。
func (s *SessionState) ClearRecent() {
	s.RecentImages = nil
}

// ToggleTheme はダーク/ライトを切り替えて新しい値を返します。
func (s *SessionState) ToggleTheme() Theme {
	if s.Theme == ThemeDark {
		s.Theme = ThemeLight
	} else {
		s.Theme = ThemeDark
	}
	return s.Theme
}

// Clone は呼び出し側に渡すためのコピーを返します。
func (s *SessionState) Clone() *SessionState {
	c := *s
	c.RecentImages = append([]RecentImage(nil), s.RecentImages...)
	return &c
}
