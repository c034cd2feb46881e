package model

type Course struct {
	BaseModel

	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	Modules []Module `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

type Module struct {
	BaseModel

	CourseID uint   `gorm:"index;not null" json:"courseId"`
	Title    string `gorm:"size:255;not null" json:"title"`
	Order    int    `gorm:"default:0" json:"order"`

	Contents    []Content    `gorm:"foreignKey:ModuleID" json:"contents,omitempty"`
	Evaluations []Evaluation `gorm:"foreignKey:ModuleID" json:"evaluations,omitempty"`
}

func (Module) TableName() string {
	return "modules"
}

type Content struct {
	BaseModel

	ModuleID uint   `gorm:"index;not null" json:"moduleId"`
	Title    string `gorm:"size:255;not null" json:"title"`
	Order    int    `gorm:"default:0" json:"order"`
}

func (Content) TableName() string {
	return "contents"
}
