package main

import (
	"fmt"
	"log"

	"coursely/internal/catalog"
	"coursely/internal/shared/config"
	"coursely/internal/shared/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("Starting Coursely database seeder...")

	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	if err := seeder.cleanup(); err != nil {
		log.Fatalf("Failed to clean existing data: %v", err)
	}

	students := seeder.seedStudents()
	courses := seeder.seedCourses()
	seeder.seedPreferences(students, courses)

	fmt.Printf("Seeded %d students and %d courses\n", len(students), len(courses))
	fmt.Println("Done.")
}

// cleanup truncates all seeded tables so the seeder is rerunnable.
func (s *Seeder) cleanup() error {
	pg := s.db.GetPostgreSQL()
	tables := []string{
		"registration_events",
		"waitlist_entries",
		"seat_bookings",
		"seat_configs",
		"course_preferences",
		"courses",
		"students",
	}
	for _, table := range tables {
		if err := pg.Exec("TRUNCATE TABLE " + table + " CASCADE").Error; err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

func (s *Seeder) seedStudents() []catalog.Student {
	students := []catalog.Student{
		{
			Name: "Aarav Patel", Email: "aarav.patel@university.edu",
			GPA: 3.9, Major: "Computer Science", Year: 3,
			Interests:        catalog.StringList{"systems", "databases", "distributed"},
			CompletedCourses: catalog.StringList{"CS101", "CS201", "MATH201"},
		},
		{
			Name: "Beatriz Silva", Email: "beatriz.silva@university.edu",
			GPA: 3.6, Major: "Computer Science", Year: 2,
			Interests:        catalog.StringList{"ai", "ml", "statistics"},
			CompletedCourses: catalog.StringList{"CS101", "MATH101"},
		},
		{
			Name: "Chen Wei", Email: "chen.wei@university.edu",
			GPA: 3.2, Major: "Data Science", Year: 4,
			Interests:        catalog.StringList{"ml", "databases", "visualization"},
			CompletedCourses: catalog.StringList{"CS101", "CS201", "STAT301"},
		},
		{
			Name: "Divya Nair", Email: "divya.nair@university.edu",
			GPA: 3.8, Major: "Mathematics", Year: 1,
			Interests:        catalog.StringList{"theory", "algorithms"},
			CompletedCourses: catalog.StringList{},
		},
		{
			Name: "Ethan Brooks", Email: "ethan.brooks@university.edu",
			GPA: 2.9, Major: "Computer Science", Year: 2,
			Interests:        catalog.StringList{"games", "graphics", "systems"},
			CompletedCourses: catalog.StringList{"CS101"},
		},
		{
			Name: "Fatima Hassan", Email: "fatima.hassan@university.edu",
			GPA: 3.5, Major: "Software Engineering", Year: 3,
			Interests:        catalog.StringList{"distributed", "cloud", "databases"},
			CompletedCourses: catalog.StringList{"CS101", "CS201"},
		},
	}

	pg := s.db.GetPostgreSQL()
	for i := range students {
		students[i].ID = uuid.New().String()
		if err := pg.Create(&students[i]).Error; err != nil {
			log.Fatalf("Failed to seed student %s: %v", students[i].Email, err)
		}
	}
	return students
}

func (s *Seeder) seedCourses() []catalog.Course {
	courses := []catalog.Course{
		{
			Code: "CS301", Name: "Distributed Systems",
			Category: "Computer Science", Difficulty: "advanced",
			MinGPA:         3.0,
			Prerequisites:  catalog.StringList{"CS201"},
			Tags:           catalog.StringList{"systems", "distributed", "networking"},
			PreferredYears: catalog.IntList{3, 4},
			Schedule: catalog.Schedule{
				Weekdays: catalog.StringList{"Mon", "Wed"}, StartTime: "10:00", EndTime: "11:30",
			},
		},
		{
			Code: "CS305", Name: "Database Internals",
			Category: "Computer Science", Difficulty: "advanced",
			MinGPA:         2.8,
			Prerequisites:  catalog.StringList{"CS201"},
			Tags:           catalog.StringList{"databases", "systems", "storage"},
			PreferredYears: catalog.IntList{3, 4},
			Schedule: catalog.Schedule{
				Weekdays: catalog.StringList{"Tue", "Thu"}, StartTime: "14:00", EndTime: "15:30",
			},
		},
		{
			Code: "CS210", Name: "Machine Learning Foundations",
			Category: "Data Science", Difficulty: "intermediate",
			MinGPA:         2.5,
			Prerequisites:  catalog.StringList{"CS101", "MATH101"},
			Tags:           catalog.StringList{"ai", "ml", "statistics"},
			PreferredYears: catalog.IntList{2, 3},
			Schedule: catalog.Schedule{
				Weekdays: catalog.StringList{"Mon", "Fri"}, StartTime: "09:00", EndTime: "10:30",
			},
		},
		{
			Code: "CS110", Name: "Intro to Algorithms",
			Category: "Computer Science", Difficulty: "beginner",
			MinGPA:         0,
			Prerequisites:  catalog.StringList{},
			Tags:           catalog.StringList{"theory", "algorithms"},
			PreferredYears: catalog.IntList{1, 2},
			Schedule: catalog.Schedule{
				Weekdays: catalog.StringList{"Wed", "Fri"}, StartTime: "13:00", EndTime: "14:30",
			},
		},
	}

	pg := s.db.GetPostgreSQL()
	for i := range courses {
		courses[i].ID = uuid.New().String()
		if err := pg.Create(&courses[i]).Error; err != nil {
			log.Fatalf("Failed to seed course %s: %v", courses[i].Code, err)
		}
	}
	return courses
}

// seedPreferences gives every student a dense ranked list over the catalog,
// rotated per student so the allocation strategies have contention to resolve.
func (s *Seeder) seedPreferences(students []catalog.Student, courses []catalog.Course) {
	pg := s.db.GetPostgreSQL()
	for i, student := range students {
		var prefs []catalog.CoursePreference
		for j := range courses {
			course := courses[(i+j)%len(courses)]
			prefs = append(prefs, catalog.CoursePreference{
				StudentID:   student.ID,
				CourseID:    course.ID,
				Priority:    j + 1,
				MatchReason: "seeded",
			})
		}
		if err := catalog.ValidatePreferences(prefs); err != nil {
			log.Fatalf("Invalid preferences for %s: %v", student.Email, err)
		}
		for k := range prefs {
			if err := pg.Create(&prefs[k]).Error; err != nil {
				log.Fatalf("Failed to seed preference: %v", err)
			}
		}
	}
}
