package scheduler

// RoomClash is a lab room booked by more than one section for the same double period.
type RoomClash struct {
	Day      string   `json:"day"`
	Time     string   `json:"time"`
	Room     string   `json:"room"`
	Sections []string `json:"sections"`
}

// roomClashes scans every lab cell for rooms shared across sections. Rooms are picked per section,
// so clashes are reported rather than prevented.
func (b *Board) roomClashes() []RoomClash {
	var clashes []RoomClash
	for day, dayName := range b.layout.days {
		for slot, label := range b.layout.slots {
			users := make(map[string][]string)
			var order []string
			for _, section := range b.sections {
				occ := b.grids[section.Name].cells[day][slot]
				if occ.Kind != OccupantLab {
					continue
				}
				for _, entry := range occ.Entries {
					if entry.Room == "" {
						continue
					}
					if _, seen := users[entry.Room]; !seen {
						order = append(order, entry.Room)
					}
					users[entry.Room] = appendUnique(users[entry.Room], section.Name)
				}
			}
			for _, room := range order {
				if len(users[room]) > 1 {
					clashes = append(clashes, RoomClash{Day: dayName, Time: label, Room: room, Sections: users[room]})
				}
			}
		}
	}
	return clashes
}

func appendUnique(values []string, value string) []string {
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}
