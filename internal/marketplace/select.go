package marketplace

import "eatoff/internal/domain/model"

// Active は有効なものだけをカタログ順で返す。
func Active(list []model.Marketplace) []model.Marketplace {
	out := make([]model.Marketplace, 0, len(list))
	for _, m := range list {
		if m.IsActive {
			out = append(out, m)
		}
	}
	return out
}

// SelectByCountry は国コード一致（大文字小文字無視）を優先し、
// 無ければ SelectDefault に落ちる。
func SelectByCountry(active []model.Marketplace, countryCode string) *model.Marketplace {
	for _, m := range active {
		if m.IsActive && m.MatchesCountry(countryCode) {
			found := m
			return &found
		}
	}
	return SelectDefault(active)
}

// SelectDefault は既定フラグ付き、無ければ先頭の有効なもの。
func SelectDefault(active []model.Marketplace) *model.Marketplace {
	for _, m := range active {
		if m.IsActive && m.IsDefault {
			found := m
			return &found
		}
	}
	for _, m := range active {
		if m.IsActive {
			found := m
			return &found
		}
	}
	return nil
}
