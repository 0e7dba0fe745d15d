package studio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shouni/go-gemini-client/pkg/gemini"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/shouni/gemini-image-studio/pkg/editor"
	"github.com/shouni/gemini-image-studio/pkg/generator"
	"github.com/shouni/gemini-image-studio/pkg/imgutil"
	"github.com/shouni/gemini-image-studio/pkg/ledger"
	"github.com/shouni/gemini-image-studio/pkg/session"
)

// RecentImageQuality は履歴に保存する JPEG の品質です。
const RecentImageQuality = 75

// Dependencies は Studio が組み立てるオーケストレーターの依存関係です。
type Dependencies struct {
	Predictor generator.Predictor
	Model     gemini.GenerativeModel
	// Cache は nil を許容（キャッシュなし動作）
	Cache editor.ImageCacher
	// TotalTokens が正の値なら、保存済みの総量より優先します。
	TotalTokens      int
	GeneratorOptions generator.Options
	EditorOptions    editor.Options
	Logger           *slog.Logger
}

// EditRequest は UI から渡される編集 1 回分の入力です。
type EditRequest struct {
	Image       []byte
	AspectRatio domain.AspectRatio
	Mode        domain.EditMode
	Prompt      string
}

// Studio は UI との境界です。セッション状態を保持し、変更のたびに保存します。
// 後から開始された操作があれば、先の操作の結果は呼び出し元には返しますが状態には反映しません。
type Studio struct {
	store  session.Store
	ledger *ledger.Ledger
	gen    *generator.Generator
	editor *editor.Editor
	logger *slog.Logger
	now    func() time.Time
	// persistCtx は保存処理に使います。Open の ctx のキャンセルは引き継ぎません。
	persistCtx context.Context

	mu          sync.Mutex
	state       *domain.SessionState
	genSeq      uint64
	editSeq     uint64
	lastBatch   *generator.BatchResult
	editSession *domain.EditSession

	saveMu sync.Mutex
}

// Open は保存済みの状態を読み込み、Studio を初期化します。
func Open(ctx context.Context, store session.Store, deps Dependencies) (*Studio, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	state, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("セッション状態の読み込みに失敗しました: %w", err)
	}
	if deps.TotalTokens > 0 {
		state.TotalTokens = deps.TotalTokens
	}
	state.Normalize()

	l, err := ledger.New(state.TotalTokens, state.UsedTokens)
	if err != nil {
		return nil, err
	}

	genOpts := deps.GeneratorOptions
	if genOpts.Logger == nil {
		genOpts.Logger = logger
	}
	gen, err := generator.New(deps.Predictor, l, genOpts)
	if err != nil {
		return nil, err
	}

	edOpts := deps.EditorOptions
	if edOpts.Logger == nil {
		edOpts.Logger = logger
	}
	ed, err := editor.New(deps.Model, l, deps.Cache, edOpts)
	if err != nil {
		return nil, err
	}

	s := &Studio{
		store:      store,
		ledger:     l,
		gen:        gen,
		editor:     ed,
		logger:     logger,
		now:        time.Now,
		persistCtx: context.WithoutCancel(ctx),
		state:      state,
	}
	l.OnChange(s.onTokensChanged)
	return s, nil
}

func (s *Studio) onTokensChanged(snap ledger.Snapshot) {
	s.mu.Lock()
	s.state.UsedTokens = snap.Used
	s.state.TotalTokens = snap.Total
	s.mu.Unlock()
	s.persist()
}

// persist は現在の状態を保存します。保存の失敗はログに残し、操作自体は失敗させません。
// s.mu を保持したまま呼ばないでください。
func (s *Studio) persist() {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	snapshot := s.state.Clone()
	s.mu.Unlock()

	if err := s.store.Save(s.persistCtx, snapshot); err != nil {
		s.logger.ErrorContext(s.persistCtx, "セッション状態の保存に失敗しました", "error", err)
	}
}

// Generate は画像を生成し、最新の操作であれば履歴と生成枚数に反映します。
func (s *Studio) Generate(ctx context.Context, req domain.GenerationRequest) (*generator.BatchResult, error) {
	s.mu.Lock()
	s.genSeq++
	seq := s.genSeq
	s.mu.Unlock()

	res, err := s.gen.Generate(ctx, req)
	if res == nil || len(res.Images) == 0 {
		return res, err
	}

	recent := s.toRecent(ctx, res)

	s.mu.Lock()
	if seq != s.genSeq {
		s.mu.Unlock()
		s.logger.InfoContext(ctx, "後続の生成が開始されたため結果を反映しません", "generation_id", res.GenerationID)
		return res, err
	}
	s.lastBatch = res
	s.state.GeneratedCount += len(res.Images)
	s.state.AddRecent(recent...)
	s.mu.Unlock()

	s.persist()
	return res, err
}

// toRecent は生成結果を履歴用の軽量な data URL に変換します。
func (s *Studio) toRecent(ctx context.Context, res *generator.BatchResult) []domain.RecentImage {
	recent := make([]domain.RecentImage, 0, len(res.Images))
	for _, img := range res.Images {
		url := img.DataURL()
		if compressed, err := imgutil.CompressToJPEG(img.Data, RecentImageQuality); err == nil {
			url = imgutil.EncodeDataURL("image/jpeg", compressed)
		} else {
			s.logger.WarnContext(ctx, "履歴用の圧縮に失敗したため元の画像を保存します", "error", err)
		}
		recent = append(recent, domain.RecentImage{
			ID:          uuid.NewString(),
			URL:         url,
			Prompt:      img.SourcePrompt,
			Timestamp:   s.now(),
			AspectRatio: img.AspectRatio,
		})
	}
	return recent
}

// Edit は新しい編集セッションを開始して実行します。前のセッションは破棄されます。
func (s *Studio) Edit(ctx context.Context, req EditRequest) (*editor.EditResult, error) {
	ratio := req.AspectRatio
	if ratio == "" {
		ratio = domain.AspectSquare
	}
	sess := domain.NewEditSession(req.Image, ratio, req.Mode, req.Prompt)

	s.mu.Lock()
	s.editSeq++
	seq := s.editSeq
	s.editSession = sess
	s.mu.Unlock()

	res, err := s.editor.Edit(ctx, sess)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if seq != s.editSeq {
		s.mu.Unlock()
		s.logger.InfoContext(ctx, "後続の編集が開始されたため結果を反映しません")
		return res, nil
	}
	s.state.GeneratedCount++
	s.mu.Unlock()

	s.persist()
	return res, nil
}

// EditSession は現在有効な編集セッションのコピーを返します。
func (s *Studio) EditSession() *domain.EditSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editSession.Clone()
}

// LastBatch は状態に反映された最新の生成結果を返します。
func (s *Studio) LastBatch() *generator.BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBatch
}

// Tokens は現在のトークン残高を返します。
func (s *Studio) Tokens() ledger.Snapshot {
	return s.ledger.Snapshot()
}

// CanAfford は cost 分のトークンが残っているかを返します。
func (s *Studio) CanAfford(cost int) bool {
	return s.ledger.CanAfford(cost)
}

// Recent は履歴のコピーを新しい順で返します。
func (s *Studio) Recent() []domain.RecentImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RecentImage(nil), s.state.RecentImages...)
}

// ClearRecent は履歴を削除して保存します。
func (s *Studio) ClearRecent() {
	s.mu.Lock()
	s.state.ClearRecent()
	s.mu.Unlock()
	s.persist()
}

// ToggleTheme はテーマを切り替えて保存し、新しい値を返します。
func (s *Studio) ToggleTheme() domain.Theme {
	s.mu.Lock()
	theme := s.state.ToggleTheme()
	s.mu.Unlock()
	s.persist()
	return theme
}

// SetCredential は資格情報をそのまま保存します。内容の解釈や保護は行いません。
func (s *Studio) SetCredential(blob string) {
	s.mu.Lock()
	s.state.CredentialBlob = blob
	s.mu.Unlock()
	s.persist()
}

// State は現在のセッション状態のコピーを返します。
func (s *Studio) State() *domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}
