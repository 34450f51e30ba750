package ai

import (
	"sort"
	"sync"
)

const DefaultLanguage = "zh"

// LabelPreset is a fixed label vocabulary for one language.
type LabelPreset struct {
	Key      string
	Language string
	Labels   []string
}

var (
	presetsMu sync.RWMutex
	presets   = map[string]LabelPreset{
		"zh": {
			Key:      "default_zh",
			Language: "zh",
			Labels: []string{
				"人像", "自拍", "宠物", "狗", "猫", "海滩", "山", "森林", "城市夜景", "街道",
				"建筑", "美食", "咖啡", "花卉", "日出", "日落", "天空", "星空", "雪", "雨天",
				"室内", "聚会", "婚礼", "运动", "汽车", "火车", "飞机", "湖泊", "河流", "沙漠",
			},
		},
		"en": {
			Key:      "default_en",
			Language: "en",
			Labels: []string{
				"portrait", "selfie", "pet", "dog", "cat", "beach", "mountain", "forest", "city at night", "street",
				"architecture", "food", "coffee", "flowers", "sunrise", "sunset", "sky", "starry sky", "snow", "rainy day",
				"indoor", "party", "wedding", "sports", "car", "train", "airplane", "lake", "river", "desert",
			},
		},
	}
)

// Labels returns the vocabulary for language, falling back to DefaultLanguage.
func Labels(language string) (string, []string) {
	presetsMu.RLock()
	defer presetsMu.RUnlock()

	p, ok := presets[language]
	if !ok {
		p = presets[DefaultLanguage]
	}
	return p.Language, append([]string(nil), p.Labels...)
}

// RegisterPreset adds or replaces the vocabulary for p.Language.
func RegisterPreset(p LabelPreset) {
	presetsMu.Lock()
	defer presetsMu.Unlock()
	presets[p.Language] = LabelPreset{Key: p.Key, Language: p.Language, Labels: append([]string(nil), p.Labels...)}
}

// Languages lists registered preset languages in sorted order.
func Languages() []string {
	presetsMu.RLock()
	defer presetsMu.RUnlock()

	out := make([]string, 0, len(presets))
	for lang := range presets {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// TopK ranks labels by similarity to image and returns the indices of the
// best k. Ties keep vocabulary order.
func TopK(image []float32, labels [][]float32, k int) ([]int, error) {
	type scored struct {
		idx int
		sim float64
	}
	scores := make([]scored, len(labels))
	for i, lv := range labels {
		sim, err := Dot(image, lv)
		if err != nil {
			return nil, err
		}
		scores[i] = scored{idx: i, sim: sim}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].sim > scores[j].sim })

	if k < 0 {
		k = 0
	}
	if k > len(scores) {
		k = len(scores)
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = scores[i].idx
	}
	return out, nil
}
