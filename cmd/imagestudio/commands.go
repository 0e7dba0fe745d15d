package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shouni/gemini-image-studio/pkg/domain"
	"github.com/shouni/gemini-image-studio/pkg/ledger"
	"github.com/shouni/gemini-image-studio/pkg/studio"
)

type command func(ctx context.Context, a *app, args []string, out io.Writer) error

var commands = map[string]command{
	"generate": runGenerate,
	"edit":     runEdit,
	"tokens":   runTokens,
	"history":  runHistory,
	"theme":    runTheme,
}

func runGenerate(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	prompt := fs.String("prompt", "", "生成する画像の説明")
	count := fs.Int("n", 1, "生成枚数 (1-4)")
	ratio := fs.String("ratio", string(domain.AspectSquare), "アスペクト比 (1:1, 16:9, 9:16, 4:3, 3:4)")
	outDir := fs.String("out", ".", "画像の保存先ディレクトリ")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *prompt == "" && fs.NArg() > 0 {
		*prompt = strings.Join(fs.Args(), " ")
	}

	if cost := *count * ledger.CostPerImage; *count > 0 && !a.studio.CanAfford(cost) {
		return fmt.Errorf("%w: 必要 %d / 残り %d", domain.ErrInsufficientTokens, cost, a.studio.Tokens().Available)
	}

	res, err := a.studio.Generate(ctx, domain.GenerationRequest{
		Prompt:      *prompt,
		Count:       *count,
		AspectRatio: domain.AspectRatio(*ratio),
	})
	if res == nil || len(res.Images) == 0 {
		return err
	}
	if err != nil {
		a.logger.WarnContext(ctx, "一部の画像は生成できませんでした", "generation_id", res.GenerationID, "error", err)
	}

	for i, img := range res.Images {
		name := fmt.Sprintf("%s-%d%s", res.GenerationID, i+1, extensionFor(img.MimeType))
		path, err := writeImage(*outDir, name, img.Data)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, path)
	}
	if res.Partial {
		fmt.Fprintf(out, "%d / %d 枚を生成しました\n", len(res.Images), res.Requested)
	}
	printTokens(out, a.studio.Tokens())
	return nil
}

func runEdit(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	imageRef := fs.String("image", "", "編集する画像 (パス / URL / data URL / gs://)")
	mode := fs.String("mode", string(domain.EditModeManual), "編集モード (manual / auto)")
	prompt := fs.String("prompt", "", "manual モードの編集指示")
	ratio := fs.String("ratio", string(domain.AspectSquare), "出力のアスペクト比")
	outPath := fs.String("out", "", "保存先 (省略時は edited-<元ファイル名>.png)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := a.loader.Load(ctx, *imageRef)
	if err != nil {
		return err
	}

	res, err := a.studio.Edit(ctx, studio.EditRequest{
		Image:       data,
		AspectRatio: domain.AspectRatio(*ratio),
		Mode:        domain.ParseEditMode(*mode),
		Prompt:      *prompt,
	})
	if err != nil {
		return err
	}

	path := *outPath
	if path == "" {
		base := strings.TrimSuffix(filepath.Base(*imageRef), filepath.Ext(*imageRef))
		if base == "" || strings.ContainsAny(base, ":;,") {
			base = "image"
		}
		path = "edited-" + base + extensionFor(res.Image.MimeType)
	}
	written, err := writeImage(filepath.Dir(path), filepath.Base(path), res.Image.Data)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, written)
	if res.Simulated {
		fmt.Fprintf(out, "AI 編集に失敗したため簡易エフェクトで代替しました: %v\n", res.RemoteErr)
	} else if res.Prompt != "" {
		fmt.Fprintf(out, "prompt: %s\n", res.Prompt)
	}
	printTokens(out, a.studio.Tokens())
	return nil
}

func runTokens(_ context.Context, a *app, _ []string, out io.Writer) error {
	printTokens(out, a.studio.Tokens())
	fmt.Fprintf(out, "generated: %d\n", a.studio.State().GeneratedCount)
	return nil
}

func runHistory(_ context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	clearAll := fs.Bool("clear", false, "履歴を削除する")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *clearAll {
		a.studio.ClearRecent()
		fmt.Fprintln(out, "履歴を削除しました")
		return nil
	}
	for _, r := range a.studio.Recent() {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", r.Timestamp.Format("2006-01-02 15:04:05"), r.ID, r.AspectRatio, r.Prompt)
	}
	return nil
}

func runTheme(_ context.Context, a *app, _ []string, out io.Writer) error {
	fmt.Fprintln(out, a.studio.ToggleTheme())
	return nil
}

func printTokens(out io.Writer, snap ledger.Snapshot) {
	fmt.Fprintf(out, "tokens: %d / %d\n", snap.Available, snap.Total)
}

func writeImage(dir, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("画像データが空です")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("出力ディレクトリを作成できません: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("画像の保存に失敗しました: %w", err)
	}
	return path, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
