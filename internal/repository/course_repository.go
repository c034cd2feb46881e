package repository

import (
	"context"
	"errors"

	"course_core_backend/internal/model"
	"course_core_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) FindByID(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	if err := r.DB.WithContext(ctx).First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return &course, nil
}

// GetModuleTree 加载课程的模块及其条目，已软删除的条目会保留并标记 Deleted
func (r *CourseRepository) GetModuleTree(ctx context.Context, courseID uint) (*model.CourseTree, error) {
	if _, err := r.FindByID(ctx, courseID); err != nil {
		return nil, err
	}

	db := r.DB.WithContext(ctx)

	var modules []model.Module
	if err := db.Where("course_id = ?", courseID).Scopes(byPosition).Find(&modules).Error; err != nil {
		return nil, err
	}

	tree := &model.CourseTree{CourseID: courseID, Modules: make([]model.ModuleNode, 0, len(modules))}
	if len(modules) == 0 {
		return tree, nil
	}

	moduleIDs := make([]uint, len(modules))
	for i, m := range modules {
		moduleIDs[i] = m.ID
	}

	var contents []model.Content
	if err := db.Unscoped().Where("module_id IN ?", moduleIDs).Scopes(byPosition).Find(&contents).Error; err != nil {
		return nil, err
	}
	var evaluations []model.Evaluation
	if err := db.Unscoped().Where("module_id IN ?", moduleIDs).Scopes(byPosition).Find(&evaluations).Error; err != nil {
		return nil, err
	}

	items := make(map[uint][]model.ItemRef, len(modules))
	for _, c := range contents {
		items[c.ModuleID] = append(items[c.ModuleID], model.ItemRef{
			Type:    model.ProgressItemContent,
			ID:      c.ID,
			Deleted: c.DeletedAt.Valid,
		})
	}
	for _, e := range evaluations {
		items[e.ModuleID] = append(items[e.ModuleID], model.ItemRef{
			Type:    model.ProgressItemEvaluation,
			ID:      e.ID,
			Deleted: e.DeletedAt.Valid,
		})
	}

	for _, m := range modules {
		tree.Modules = append(tree.Modules, model.ModuleNode{
			ModuleID: m.ID,
			Title:    m.Title,
			Order:    m.Order,
			Items:    items[m.ID],
		})
	}
	return tree, nil
}

// LocateContent 返回内容及其所属模块
func (r *CourseRepository) LocateContent(ctx context.Context, contentID uint) (*model.Content, *model.Module, error) {
	db := r.DB.WithContext(ctx)

	var content model.Content
	if err := db.First(&content, contentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrContentNotFound
		}
		return nil, nil, err
	}

	var module model.Module
	if err := db.First(&module, content.ModuleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrContentNotFound
		}
		return nil, nil, err
	}
	return &content, &module, nil
}

// byPosition 先按 order 列排序（需要方言转义），再按 id
func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}}).Order("id ASC")
}
