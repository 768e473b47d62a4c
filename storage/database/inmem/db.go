// Package inmemdb is a process-local store, used in tests and local runs.
package inmemdb

import (
	"sync"

	"github.com/trezcool/ratiba/core/attendance"
	"github.com/trezcool/ratiba/core/points"
	"github.com/trezcool/ratiba/core/roster"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/substitution"
)

type (
	DB struct {
		schedule     *scheduleTables
		presence     *presenceTable
		substitution *substitutionTable
		points       *pointsTable
		roster       *rosterTables
	}

	scheduleTables struct {
		sync.RWMutex
		rooms   map[string]schedule.Room
		courses map[string]schedule.Course
		groups  map[string]schedule.Group
		lessons map[string]schedule.Lesson
	}

	presenceTable struct {
		sync.RWMutex
		table map[string]attendance.Record
	}

	substitutionTable struct {
		sync.RWMutex
		table map[string]substitution.Substitution
	}

	pointsTable struct {
		sync.RWMutex
		table []points.Transaction
	}

	rosterTables struct {
		sync.RWMutex
		students map[string][]roster.Student // by group
		profiles map[string]roster.Profile
		denied   map[string]map[string]bool // group -> actor
	}
)

func Open() *DB {
	return &DB{
		schedule: &scheduleTables{
			rooms:   make(map[string]schedule.Room),
			courses: make(map[string]schedule.Course),
			groups:  make(map[string]schedule.Group),
			lessons: make(map[string]schedule.Lesson),
		},
		presence:     &presenceTable{table: make(map[string]attendance.Record)},
		substitution: &substitutionTable{table: make(map[string]substitution.Substitution)},
		points:       &pointsTable{},
		roster: &rosterTables{
			students: make(map[string][]roster.Student),
			profiles: make(map[string]roster.Profile),
			denied:   make(map[string]map[string]bool),
		},
	}
}
