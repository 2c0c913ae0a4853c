// Package seed loads employees, projects and task assignments for the
// reference backend from YAML.
package seed

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"worktracker/internal/models"
)

type File struct {
	Employees []Employee `yaml:"employees"`
	Projects  []Project  `yaml:"projects"`
}

type Employee struct {
	Email    string `yaml:"email"`
	FullName string `yaml:"full_name"`
	Password string `yaml:"password"`
}

type Project struct {
	Name  string `yaml:"name"`
	Tasks []Task `yaml:"tasks"`
}

type Task struct {
	Name     string `yaml:"name"`
	Assignee string `yaml:"assignee"`
}

var hashCost = bcrypt.DefaultCost

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	emails := map[string]bool{}
	for _, e := range f.Employees {
		if e.Email == "" || e.Password == "" {
			return nil, fmt.Errorf("seed employee %q needs email and password", e.FullName)
		}
		emails[strings.ToLower(e.Email)] = true
	}
	for _, p := range f.Projects {
		for _, t := range p.Tasks {
			if !emails[strings.ToLower(t.Assignee)] {
				return nil, fmt.Errorf("task %q in %q assigned to unknown employee %q", t.Name, p.Name, t.Assignee)
			}
		}
	}
	return &f, nil
}

// Apply inserts whatever is missing. Existing rows are left alone, so
// applying the same file twice is a no-op.
func Apply(db *gorm.DB, f *File) error {
	return db.Transaction(func(tx *gorm.DB) error {
		ids := map[string]uint{}
		for _, e := range f.Employees {
			email := strings.ToLower(e.Email)
			var emp models.Employee
			err := tx.Where(models.Employee{Email: email}).First(&emp).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				hash, herr := bcrypt.GenerateFromPassword([]byte(e.Password), hashCost)
				if herr != nil {
					return herr
				}
				emp = models.Employee{Email: email, FullName: e.FullName, PasswordHash: string(hash)}
				err = tx.Create(&emp).Error
			}
			if err != nil {
				return fmt.Errorf("seed employee %s: %w", email, err)
			}
			ids[email] = emp.ID
		}

		for _, p := range f.Projects {
			var proj models.Project
			if err := tx.Where(models.Project{Name: p.Name}).FirstOrCreate(&proj).Error; err != nil {
				return fmt.Errorf("seed project %s: %w", p.Name, err)
			}
			for _, t := range p.Tasks {
				task := models.Task{Name: t.Name, ProjectID: proj.ID, EmployeeID: ids[strings.ToLower(t.Assignee)]}
				if err := tx.Where(task).FirstOrCreate(&task).Error; err != nil {
					return fmt.Errorf("seed task %s: %w", t.Name, err)
				}
			}
		}
		return nil
	})
}
