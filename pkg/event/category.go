package event

// CopyFlags select which scheduling attributes are carried forward from a previously
// seen, similar event.
type CopyFlags struct {
	CopyAvailability      bool `json:"copyAvailability"`
	CopyTimeBlocking      bool `json:"copyTimeBlocking"`
	CopyTimePreference    bool `json:"copyTimePreference"`
	CopyReminders         bool `json:"copyReminders"`
	CopyPriorityLevel     bool `json:"copyPriorityLevel"`
	CopyModifiable        bool `json:"copyModifiable"`
	CopyCategories        bool `json:"copyCategories"`
	CopyIsBreak           bool `json:"copyIsBreak"`
	CopyIsMeeting         bool `json:"copyIsMeeting"`
	CopyIsExternalMeeting bool `json:"copyIsExternalMeeting"`
}

// Or combines two flag sets; a flag is set when either side sets it.
func (f CopyFlags) Or(other CopyFlags) CopyFlags {
	return CopyFlags{
		CopyAvailability:      f.CopyAvailability || other.CopyAvailability,
		CopyTimeBlocking:      f.CopyTimeBlocking || other.CopyTimeBlocking,
		CopyTimePreference:    f.CopyTimePreference || other.CopyTimePreference,
		CopyReminders:         f.CopyReminders || other.CopyReminders,
		CopyPriorityLevel:     f.CopyPriorityLevel || other.CopyPriorityLevel,
		CopyModifiable:        f.CopyModifiable || other.CopyModifiable,
		CopyCategories:        f.CopyCategories || other.CopyCategories,
		CopyIsBreak:           f.CopyIsBreak || other.CopyIsBreak,
		CopyIsMeeting:         f.CopyIsMeeting || other.CopyIsMeeting,
		CopyIsExternalMeeting: f.CopyIsExternalMeeting || other.CopyIsExternalMeeting,
	}
}

// CategoryDefaults are the scheduling attributes a category applies to the events assigned to it.
type CategoryDefaults struct {
	DefaultAvailability      Transparency         `json:"defaultAvailability,omitempty"`
	DefaultTimeBlocking      *BufferTime          `json:"defaultTimeBlocking,omitempty"`
	DefaultTimePreference    []PreferredTimeRange `json:"defaultTimePreference,omitempty"`
	DefaultReminders         []int                `json:"defaultReminders,omitempty"`
	DefaultPriorityLevel     int                  `json:"defaultPriorityLevel,omitempty"`
	DefaultModifiable        *bool                `json:"defaultModifiable,omitempty"`
	DefaultIsBreak           bool                 `json:"defaultIsBreak,omitempty"`
	DefaultIsMeeting         bool                 `json:"defaultIsMeeting,omitempty"`
	DefaultIsExternalMeeting bool                 `json:"defaultIsExternalMeeting,omitempty"`
}

type Category struct {
	Id     string `json:"id"`
	UserId string `json:"userId"`
	Name   string `json:"name"`
	CopyFlags
	CategoryDefaults
}

// CategoryIds returns the ids of the given categories, in order.
func CategoryIds(categories []Category) []string {
	ids := make([]string, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.Id)
	}
	return ids
}
