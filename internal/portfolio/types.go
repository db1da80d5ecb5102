package portfolio

// Experience 表示一段工作经历，按后端返回顺序展示。
type Experience struct {
	ID          uint      `json:"id"`
	Company     string    `json:"company"`
	Position    string    `json:"position"`
	Duration    string    `json:"duration"`
	Description string    `json:"description"`
	IsCurrent   bool      `json:"is_current"`
	CreatedAt   Timestamp `json:"created_at"`
}

// Project 表示一个作品项目。Technologies 为逗号分隔的标签串。
type Project struct {
	ID           uint      `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Technologies string    `json:"technologies"`
	GithubURL    *string   `json:"github_url,omitempty"`
	CreatedAt    Timestamp `json:"created_at"`
}

// Skill 表示一项技能。Proficiency 原样透传，不做 [0,100] 校验。
type Skill struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Proficiency int       `json:"proficiency"`
	CreatedAt   Timestamp `json:"created_at"`
}

// Education 表示一段教育经历。
type Education struct {
	ID             uint      `json:"id"`
	Institution    string    `json:"institution"`
	Degree         string    `json:"degree"`
	FieldOfStudy   string    `json:"field_of_study"`
	GPA            string    `json:"gpa"`
	GraduationDate string    `json:"graduation_date"`
	Location       string    `json:"location"`
	CreatedAt      Timestamp `json:"created_at"`
}

// ContactMessage 是联系表单提交的内容，只写不读，没有 ID。
type ContactMessage struct {
	Name    string `json:"name" binding:"required,max=255"`
	Email   string `json:"email" binding:"required,email,max=255"`
	Message string `json:"message" binding:"required,max=5000"`
}
