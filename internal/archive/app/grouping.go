package app

import (
	"fmt"
	"sort"
	"time"

	"chat_archive_service/internal/archive/domain"

	"github.com/google/uuid"
)

// MonthStartUTC 取 UTC 月份起點
func MonthStartUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// GroupMessages 依 (room, UTC month) 分組，保留輸入順序
// 每筆訊息恰好落在一組；所有組的聯集等於輸入
func GroupMessages(msgs []*domain.HotMessage) map[domain.GroupKey][]*domain.HotMessage {
	groups := make(map[domain.GroupKey][]*domain.HotMessage)
	for _, m := range msgs {
		key := domain.GroupKey{
			RoomID:     m.RoomID,
			MonthStart: MonthStartUTC(m.CreatedAt),
		}
		groups[key] = append(groups[key], m)
	}
	return groups
}

// SortedGroupKeys map 迭代順序不固定，依 (room, month) 排序讓處理順序可預期
func SortedGroupKeys(groups map[domain.GroupKey][]*domain.HotMessage) []domain.GroupKey {
	keys := make([]domain.GroupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].RoomID != keys[j].RoomID {
			return keys[i].RoomID < keys[j].RoomID
		}
		return keys[i].MonthStart.Before(keys[j].MonthStart)
	})
	return keys
}

// DeriveObjectKey 產生不重複的 object key
// 同一 (room, month) 每次 run 都上傳新物件，不覆寫；只靠毫秒時間戳
// 仍可能撞 key，所以再補一段 uuid
func DeriveObjectKey(roomID string, monthStart time.Time) string {
	token := fmt.Sprintf("%d-%s", time.Now().UTC().UnixMilli(), uuid.New().String()[:8])
	return fmt.Sprintf("room=%s/year=%04d/month=%02d/batch-%s.json.gz",
		roomID, monthStart.UTC().Year(), int(monthStart.UTC().Month()), token)
}
