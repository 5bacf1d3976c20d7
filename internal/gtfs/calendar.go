package gtfs

import "time"

const civilDateFormat = "20060102"

// ActiveServiceIDs returns the set of service IDs active on the civil date
// of t: services whose window includes the date and whose weekday flag is
// set, minus same-date removal exceptions, plus same-date additions.
// Results are memoized per civil date for the lifetime of this index.
func (idx *StaticIndex) ActiveServiceIDs(t time.Time) map[string]struct{} {
	date := t.Format(civilDateFormat)
	if cached, ok := idx.activeServiceMemo.Load(date); ok {
		return cached.(map[string]struct{})
	}

	active := make(map[string]struct{})
	weekday := t.Weekday()
	for serviceID, cal := range idx.Calendars {
		if !cal.Weekdays[weekday] {
			continue
		}
		if date < cal.StartDate || date > cal.EndDate {
			continue
		}
		active[serviceID] = struct{}{}
	}

	for serviceID, exceptions := range idx.CalendarDates {
		for _, e := range exceptions {
			if e.Date != date {
				continue
			}
			switch e.ExceptionType {
			case ExceptionAdded:
				active[serviceID] = struct{}{}
			case ExceptionRemoved:
				delete(active, serviceID)
			}
		}
	}

	idx.activeServiceMemo.Store(date, active)
	return active
}
