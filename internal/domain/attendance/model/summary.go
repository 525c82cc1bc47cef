// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"cmp"
	"slices"
)

// TeacherDayKey groups one teacher's records by subject and day.
type TeacherDayKey struct {
	Subject string `json:"subject" bson:"subject"`
	Date    string `json:"date" bson:"date"`
}

// TeacherDay is one row of a teacher daily summary.
type TeacherDay struct {
	Key   TeacherDayKey `json:"_id" bson:"_id"`
	Count int64         `json:"count" bson:"count"`
}

// GlobalDayKey groups all records by subject, teacher and day.
type GlobalDayKey struct {
	Subject string `json:"subject" bson:"subject"`
	Teacher string `json:"teacher" bson:"teacher"`
	Date    string `json:"date" bson:"date"`
}

// GlobalDay is one row of the administrator summary.
type GlobalDay struct {
	Key   GlobalDayKey `json:"_id" bson:"_id"`
	Count int64        `json:"count" bson:"count"`
}

// SortTeacherDays orders rows newest day first, then by subject.
func SortTeacherDays(rows []TeacherDay) {
	slices.SortFunc(rows, func(a, b TeacherDay) int {
		if c := cmp.Compare(b.Key.Date, a.Key.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Key.Subject, b.Key.Subject)
	})
}

// SortGlobalDays orders rows newest day first, then by subject and teacher.
func SortGlobalDays(rows []GlobalDay) {
	slices.SortFunc(rows, func(a, b GlobalDay) int {
		if c := cmp.Compare(b.Key.Date, a.Key.Date); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Key.Subject, b.Key.Subject); c != 0 {
			return c
		}
		return cmp.Compare(a.Key.Teacher, b.Key.Teacher)
	})
}

// GroupTeacherDays aggregates records (already filtered to one teacher) into daily rows.
func GroupTeacherDays(records []Record) []TeacherDay {
	counts := make(map[TeacherDayKey]int64)
	for _, r := range records {
		counts[TeacherDayKey{Subject: r.Subject, Date: Day(r.Date)}]++
	}
	out := make([]TeacherDay, 0, len(counts))
	for k, n := range counts {
		out = append(out, TeacherDay{Key: k, Count: n})
	}
	SortTeacherDays(out)
	return out
}

// GroupGlobalDays aggregates records into per subject, teacher and day rows.
func GroupGlobalDays(records []Record) []GlobalDay {
	counts := make(map[GlobalDayKey]int64)
	for _, r := range records {
		counts[GlobalDayKey{Subject: r.Subject, Teacher: r.TeacherID, Date: Day(r.Date)}]++
	}
	out := make([]GlobalDay, 0, len(counts))
	for k, n := range counts {
		out = append(out, GlobalDay{Key: k, Count: n})
	}
	SortGlobalDays(out)
	return out
}
