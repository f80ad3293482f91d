package resourceservice

// Resource модель ресурса из реестра ресурсов
// Движок планирования читает только политику и статус, CRUD ресурсов - снаружи
type Resource struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"` // room, lab, equipment
	Blocked       bool    `json:"blocked"`  // ресурс выведен из эксплуатации - жесткий blackout
	BlockedReason *string `json:"blocked_reason,omitempty"`

	// Политика бронирования
	RequiresApproval bool `json:"requires_approval"`
	RequiresCheckIn  bool `json:"requires_check_in"`
	WaitlistCap      int  `json:"waitlist_cap"` // 0 = без лимита

	OperatingHours WeekSchedule `json:"operating_hours"`
}

// WeekSchedule недельный шаблон доступности ресурса
type WeekSchedule struct {
	Monday    DaySchedule `json:"monday"`
	Tuesday   DaySchedule `json:"tuesday"`
	Wednesday DaySchedule `json:"wednesday"`
	Thursday  DaySchedule `json:"thursday"`
	Friday    DaySchedule `json:"friday"`
	Saturday  DaySchedule `json:"saturday"`
	Sunday    DaySchedule `json:"sunday"`
}

// DaySchedule расписание доступности на день недели
type DaySchedule struct {
	IsOpen    bool    `json:"is_open"`
	OpenTime  *string `json:"open_time,omitempty"`  // "08:00"
	CloseTime *string `json:"close_time,omitempty"` // "20:00"
}

// ErrorResponse модель ошибки от реестра ресурсов
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
