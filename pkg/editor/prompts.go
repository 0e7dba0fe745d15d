package editor

import "fmt"

// DefaultBackgroundPrompt は解析結果が空だった場合に使う背景の説明です。
const DefaultBackgroundPrompt = "a beautiful landscape"

// visionInstruction は自動補正の 1 段目で画像解析モデルに渡す指示です。
const visionInstruction = "Analyze the main subject of this image. Generate a concise, descriptive prompt for an AI image editor to replace the background with a new, realistic, and contextually appropriate one that complements the main subject. The new background should enhance but not distract from the main subject. Return only the background description prompt without any additional text."

const (
	preserveSubject = "Keep the main subject (especially any person) completely unchanged, preserving all details including facial features, hair, clothing, and jewelry. Do not add, remove, or modify any part of the main subject."
	preserveInFocus = "Keep the main subject (especially if it's a person) completely unchanged, in focus, and with all details preserved including facial features, hair, clothing, and jewelry. Do not add, remove, or modify any part of the main subject."
	extendExisting  = "Analyze the existing background elements and style, then seamlessly extend and fill in the empty space around the center image to match the existing background."
	extendNatural   = "Fill in the empty space around the center image to match a natural background that complements the main subject."
	blendFull       = "Generate a full background that seamlessly blends with the existing image to create a cohesive, professional result."
	matchAesthetic  = "Ensure the background extension matches the lighting, colors, textures, and overall aesthetic of the original image."
)

// autoEditPrompt は自動補正 2 段目の、背景だけを差し替える指示です。
func autoEditPrompt(background, ratio string) string {
	return fmt.Sprintf("Modify ONLY the background of this image to match: %s. CRITICAL: %s %s The input image has been placed on a canvas with aspect ratio %s. %s %s",
		background, preserveSubject, extendExisting, ratio, blendFull, matchAesthetic)
}

// manualEditPrompt はユーザー指定プロンプトでの編集指示です。
// 構造化指定が通らなかった再試行では、背景の補完指示を簡略化した文面を使います。
func manualEditPrompt(userPrompt, ratio string, retry bool) string {
	if retry {
		return fmt.Sprintf("Modify the image according to this prompt: %s. CRITICAL: %s %s The input image has been placed on a canvas with aspect ratio %s. %s",
			userPrompt, preserveInFocus, extendNatural, ratio, blendFull)
	}
	return fmt.Sprintf("Modify the image according to this prompt: %s. CRITICAL: %s %s The input image has been placed on a canvas with aspect ratio %s. %s %s",
		userPrompt, preserveInFocus, extendExisting, ratio, blendFull, matchAesthetic)
}
