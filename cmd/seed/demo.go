package main

import (
	"context"
	"time"
)

const day = 24 * time.Hour

// seedDemo loads a small city: three zones, staff in every role, trees at
// each inspection state, and tasks on both sides of today.
func seedDemo(ctx context.Context, st *store, emailDomain string, now time.Time) (map[string]string, error) {
	zones := map[string]int64{}
	for _, z := range []struct{ name, city string }{
		{"Riverside Park", "Pune"},
		{"Old Town", "Pune"},
		{"Hillcrest", "Pune"},
	} {
		id, err := st.addZone(ctx, z.name, z.city)
		if err != nil {
			return nil, err
		}
		zones[z.name] = id
	}
	riverside, oldTown, hillcrest := zones["Riverside Park"], zones["Old Town"], zones["Hillcrest"]

	oak, err := st.addSpecies(ctx, "Oak", "Quercus robur")
	if err != nil {
		return nil, err
	}
	neem, err := st.addSpecies(ctx, "Neem", "Azadirachta indica")
	if err != nil {
		return nil, err
	}

	mail := func(u string) string { return u + "@" + emailDomain }
	staff := []staffSeed{
		{Username: "admin", First: "Asha", Last: "Rao", Email: mail("admin"), Role: "admin"},
		{Username: "river.sup", First: "Dev", Last: "Kulkarni", Email: mail("river.sup"), Role: "supervisor", Zones: []int64{riverside}},
		{Username: "town.sup", First: "Meera", Email: mail("town.sup"), Role: "supervisor", Zones: []int64{oldTown, hillcrest}},
		{Username: "floating.sup", Email: mail("floating.sup"), Role: "supervisor"},
		{Username: "noemail.sup", Role: "supervisor", Zones: []int64{riverside}},
		{Username: "crew1", First: "Ravi", Email: mail("crew1"), Role: "field_worker", Zones: []int64{riverside}},
	}
	ids := map[string]int64{}
	for _, s := range staff {
		id, err := st.addStaff(ctx, s)
		if err != nil {
			return nil, err
		}
		ids[s.Username] = id
	}
	crew := ids["crew1"]

	type treePlan struct {
		seed   treeSeed
		logged []time.Duration
	}
	trees := []treePlan{
		{seed: treeSeed{Zone: riverside, Species: oak, Tag: "RP-001", Health: "healthy", CreatedAt: now.Add(-400 * day)}, logged: []time.Duration{30 * day, 2 * day}},
		{seed: treeSeed{Zone: riverside, Species: neem, Tag: "RP-002", Health: "at_risk", CreatedAt: now.Add(-200 * day)}, logged: []time.Duration{45 * day}},
		{seed: treeSeed{Zone: oldTown, Species: oak, Tag: "OT-001", Health: "healthy", CreatedAt: now.Add(-90 * day)}},
		{seed: treeSeed{Zone: oldTown, Species: neem, Health: "at_risk", CreatedAt: now.Add(-60 * day)}, logged: []time.Duration{20 * day}},
		{seed: treeSeed{Zone: hillcrest, Species: oak, Tag: "HC-001", Health: "healthy", CreatedAt: now.Add(-30 * day)}, logged: []time.Duration{15 * day}},
		{seed: treeSeed{Zone: hillcrest, Species: neem, Tag: "HC-002", Health: "dead", CreatedAt: now.Add(-500 * day)}},
	}
	var firstTree int64
	for i, tp := range trees {
		id, err := st.addTree(ctx, tp.seed)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			firstTree = id
		}
		for _, ago := range tp.logged {
			if err := st.addHealthLog(ctx, id, tp.seed.Health, now.Add(-ago)); err != nil {
				return nil, err
			}
		}
	}

	tasks := []taskSeed{
		{Title: "Prune low branches over footpath", Type: "prune", Priority: "urgent", Status: "pending", Zone: riverside, Tree: &firstTree, Due: now.Add(-5 * day)},
		{Title: "Water saplings along east bank", Type: "water", Priority: "medium", Status: "in_progress", Zone: riverside, Assignee: &crew, Due: now.Add(-2 * day)},
		{Title: "Treat bark fungus", Type: "treat", Priority: "high", Status: "pending", Zone: oldTown, Due: now.Add(-9 * day)},
		{Title: "Fertilize market square planters", Type: "fertilize", Priority: "low", Status: "pending", Zone: hillcrest, Due: now.Add(-1 * day)},
		{Title: "Remove storm-damaged neem", Type: "remove", Priority: "urgent", Status: "completed", Zone: hillcrest, Due: now.Add(-3 * day)},
		{Title: "Inspect new plantings", Type: "inspect", Priority: "medium", Status: "pending", Zone: oldTown, Due: now},
		{Title: "Quarterly oak survey", Type: "inspect", Priority: "low", Status: "pending", Zone: riverside, Due: now.Add(10 * day)},
	}
	for _, t := range tasks {
		if _, err := st.addTask(ctx, t); err != nil {
			return nil, err
		}
	}

	return map[string]string{
		"ADMIN_STAFF_ID":      itoa(ids["admin"]),
		"SUPERVISOR_STAFF_ID": itoa(ids["river.sup"]),
		"RIVERSIDE_ZONE_ID":   itoa(riverside),
	}, nil
}
