package detector

import "time"

// State 检测状态：在某个常用地点内（Inside）或不在任何已知地点内（Outside）
// 冷却时间戳独立于位置，重新进入地点后仍然保留
type State struct {
	insidePlaceID string
	lastAlertAt   time.Time
}

// Outside 初始状态，进程重启后从这里开始
func Outside() State {
	return State{}
}

// Inside 位于 placeID 对应的地点内
func Inside(placeID string) State {
	return State{insidePlaceID: placeID}
}

// InsidePlace 返回所在地点 ID
func (s State) InsidePlace() (string, bool) {
	return s.insidePlaceID, s.insidePlaceID != ""
}

// LastAlert 返回上一次提醒时间
func (s State) LastAlert() (time.Time, bool) {
	return s.lastAlertAt, !s.lastAlertAt.IsZero()
}

// WithLastAlert 设置冷却时间戳
func (s State) WithLastAlert(at time.Time) State {
	s.lastAlertAt = at
	return s
}

func (s State) moveTo(placeID string) State {
	s.insidePlaceID = placeID
	return s
}

func (s State) String() string {
	if s.insidePlaceID == "" {
		return "outside"
	}
	return "inside(" + s.insidePlaceID + ")"
}
