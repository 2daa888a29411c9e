package repository

import (
	"github.com/arslant84/l1a-test-sub000/internal/model"
	"gorm.io/gorm"
)

// EmployeeRepository 员工仓储接口
type EmployeeRepository interface {
	Save(emp *model.Employee) error
	FindByID(id string) (*model.Employee, error)
	FindByRole(role model.Role) ([]*model.Employee, error)
	FindByManagerID(managerID string) ([]*model.Employee, error)
	FindAll() ([]*model.Employee, error)
}

// employeeRepository 员工仓储实现
type employeeRepository struct {
	db *gorm.DB
}

// NewEmployeeRepository 创建员工仓储
func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

// Save 保存员工
func (r *employeeRepository) Save(emp *model.Employee) error {
	return r.db.Save(emp).Error
}

// FindByID 根据 ID 查找员工
func (r *employeeRepository) FindByID(id string) (*model.Employee, error) {
	var emp model.Employee
	if err := r.db.Where("id = ?", id).First(&emp).Error; err != nil {
		return nil, err
	}
	return &emp, nil
}

// FindByRole 根据角色查找员工
func (r *employeeRepository) FindByRole(role model.Role) ([]*model.Employee, error) {
	var emps []*model.Employee
	err := r.db.Where("role = ?", role).Order("name ASC").Find(&emps).Error
	return emps, err
}

// FindByManagerID 查找某主管的直接下属
func (r *employeeRepository) FindByManagerID(managerID string) ([]*model.Employee, error) {
	var emps []*model.Employee
	err := r.db.Where("manager_id = ?", managerID).Order("name ASC").Find(&emps).Error
	return emps, err
}

// FindAll 查找所有员工
func (r *employeeRepository) FindAll() ([]*model.Employee, error) {
	var emps []*model.Employee
	err := r.db.Order("name ASC").Find(&emps).Error
	return emps, err
}
