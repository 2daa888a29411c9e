package model

// Role 员工角色
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleSupervisor Role = "supervisor"
	RoleTHR        Role = "thr"
	RoleCEO        Role = "ceo"
	RoleCM         Role = "cm"
)

var validRoles = map[Role]bool{
	RoleEmployee:   true,
	RoleSupervisor: true,
	RoleTHR:        true,
	RoleCEO:        true,
	RoleCM:         true,
}

// IsValid 判断角色是否合法
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String 返回角色的字符串表示
func (r Role) String() string {
	return string(r)
}

// Status 培训申请状态
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

var validStatuses = map[Status]bool{
	StatusPending:   true,
	StatusApproved:  true,
	StatusRejected:  true,
	StatusCancelled: true,
}

// IsValid 判断状态是否合法
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String 返回状态的字符串表示
func (s Status) String() string {
	return string(s)
}

// Step 审批步骤,即当前应当处理申请的角色
type Step string

const (
	StepSupervisor Step = "supervisor"
	StepTHR        Step = "thr"
	StepCEO        Step = "ceo"
	StepCM         Step = "cm"
	StepCompleted  Step = "completed"
)

var validSteps = map[Step]bool{
	StepSupervisor: true,
	StepTHR:        true,
	StepCEO:        true,
	StepCM:         true,
	StepCompleted:  true,
}

// IsValid 判断步骤是否合法
func (s Step) IsValid() bool {
	return validSteps[s]
}

// IsTerminal 判断是否为终止步骤
func (s Step) IsTerminal() bool {
	return s == StepCompleted
}

// Role 返回步骤对应的审批角色,completed 步骤没有对应角色
func (s Step) Role() (Role, bool) {
	switch s {
	case StepSupervisor:
		return RoleSupervisor, true
	case StepTHR:
		return RoleTHR, true
	case StepCEO:
		return RoleCEO, true
	case StepCM:
		return RoleCM, true
	}
	return "", false
}

// String 返回步骤的字符串表示
func (s Step) String() string {
	return string(s)
}

// Decision 审批链条目的决定类型
type Decision string

const (
	DecisionApproved  Decision = "approved"
	DecisionRejected  Decision = "rejected"
	DecisionProcessed Decision = "processed"
)

// IsValid 判断决定是否合法
func (d Decision) IsValid() bool {
	return d == DecisionApproved || d == DecisionRejected || d == DecisionProcessed
}

// String 返回决定的字符串表示
func (d Decision) String() string {
	return string(d)
}

// TrainingMode 培训方式
type TrainingMode string

const (
	ModeOnline   TrainingMode = "online"
	ModeInHouse  TrainingMode = "in-house"
	ModeLocal    TrainingMode = "local"
	ModeOverseas TrainingMode = "overseas"
)

var validModes = map[TrainingMode]bool{
	ModeOnline:   true,
	ModeInHouse:  true,
	ModeLocal:    true,
	ModeOverseas: true,
}

// IsValid 判断培训方式是否合法
func (m TrainingMode) IsValid() bool {
	return validModes[m]
}

// String 返回培训方式的字符串表示
func (m TrainingMode) String() string {
	return string(m)
}
