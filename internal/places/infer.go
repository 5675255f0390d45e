package places

import (
	"strings"

	"TripGuard/internal/model"
)

// 按优先级排列，第一个命中的类别生效
var placeTypeKeywords = []struct {
	placeType model.PlaceType
	keywords  []string
}{
	{model.PlaceTypeHome, []string{"maison", "home", "domicile", "chez moi"}},
	{model.PlaceTypeWork, []string{"travail", "bureau", "work", "office"}},
	{model.PlaceTypeFriends, []string{"ami", "amis", "friend", "friends", "famille"}},
}

// InferPreferredPlaceType 根据收藏地址的标签推断地点类别
func InferPreferredPlaceType(label string) model.PlaceType {
	lower := strings.ToLower(label)
	for _, group := range placeTypeKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.placeType
			}
		}
	}
	return model.PlaceTypeOther
}

// DefaultSelectable 未显式选择时默认参与检测的类别
func DefaultSelectable(t model.PlaceType) bool {
	return t == model.PlaceTypeHome || t == model.PlaceTypeWork || t == model.PlaceTypeFriends
}
