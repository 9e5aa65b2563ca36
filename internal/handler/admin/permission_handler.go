package admin

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-token-backend/internal/common/handler"
	"github.com/dumeirei/hotel-token-backend/internal/common/response"
	adminService "github.com/dumeirei/hotel-token-backend/internal/service/admin"
)

// PermissionHandler 角色权限管理处理器
type PermissionHandler struct {
	permissionService *adminService.PermissionService
}

// NewPermissionHandler 创建角色权限管理处理器
func NewPermissionHandler(permissionSvc *adminService.PermissionService) *PermissionHandler {
	return &PermissionHandler{
		permissionService: permissionSvc,
	}
}

// handleRBACError 映射角色权限服务错误
func handleRBACError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, adminService.ErrRoleNotFound):
		response.NotFound(c, "角色不存在")
	case errors.Is(err, adminService.ErrRoleCodeExists):
		response.BadRequest(c, "角色编码已存在")
	case errors.Is(err, adminService.ErrRoleIsSystem):
		response.Forbidden(c, "系统角色不能删除或修改")
	case errors.Is(err, adminService.ErrRoleHasAdmins):
		response.BadRequest(c, "角色下有管理员，无法删除")
	case errors.Is(err, adminService.ErrPermissionNotFound):
		response.NotFound(c, "权限不存在")
	case errors.Is(err, adminService.ErrPermissionCodeExists):
		response.BadRequest(c, "权限编码已存在")
	case errors.Is(err, adminService.ErrPermissionHasChildren):
		response.BadRequest(c, "权限下有子权限，无法删除")
	default:
		response.InternalError(c, err.Error())
	}
}

// ==================== 角色管理 ====================

// CreateRole 创建角色
// @Summary 创建角色
// @Tags 管理-角色权限
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body adminService.CreateRoleRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /admin/system/roles [post]
func (h *PermissionHandler) CreateRole(c *gin.Context) {
	var req adminService.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	role, err := h.permissionService.CreateRole(c.Request.Context(), &req)
	if err != nil {
		handleRBACError(c, err)
		return
	}

	response.Success(c, role)
}

// UpdateRole 更新角色
// @Summary 更新角色
// @Tags 管理-角色权限
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "角色ID"
// @Param request body adminService.UpdateRoleRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /admin/system/roles/{id} [put]
func (h *PermissionHandler) UpdateRole(c *gin.Context) {
	id, ok := handler.ParseParamID(c, "id", "角色")
	if !ok {
		return
	}

	var req adminService.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	if err := h.permissionService.UpdateRole(c.Request.Context(), id, &req); err != nil {
		handleRBACError(c, err)
		return
	}

	response.Success(c, nil)
}

// DeleteRole 删除角色
// @Summary 删除角色
// @Tags 管理-角色权限
// @Produce json
// @Security Bearer
// @Param id path int true "角色ID"
// @Success 200 {object} response.Response
// @Router /admin/system/roles/{id} [delete]
func (h *PermissionHandler) DeleteRole(c *gin.Context) {
	id, ok := handler.ParseParamID(c, "id", "角色")
	if !ok {
		return
	}

	if err := h.permissionService.DeleteRole(c.Request.Context(), id); err != nil {
		handleRBACError(c, err)
		return
	}

	response.Success(c, nil)
}

// ListRoles 分页查询角色
// @Summary 查询角色列表
// @Tags 管理-角色权限
// @Produce json
// @Security Bearer
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Param keyword query string false "关键字"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /admin/system/roles [get]
func (h *PermissionHandler) ListRoles(c *gin.Context) {
	p := handler.BindPagination(c)

	filters := map[string]interface{}{
		"keyword": c.Query("keyword"),
	}

	list, total, err := h.permissionService.ListRoles(c.Request.Context(), p.GetOffset(), p.PageSize, filters)
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}

// GetRole 查询角色详情
// @Summary 查询角色详情
// @Tags 管理-角色权限
// @Produce json
// @Security Bearer
// @Param id path int true "角色ID"
// @Success 200 {object} response.Response
// @Router /admin/system/roles/{id} [get]
func (h *PermissionHandler) GetRole(c *gin.Context) {
	id, ok := handler.ParseParamID(c, "id", "角色")
	if !ok {
		return
	}

	role, err := h.permissionService.GetRole(c.Request.Context(), id)
	if err != nil {
		handleRBACError(c, err)
		return
	}

	response.Success(c, role)
}

// SetRolePermissionsRequest 设置角色权限请求
type SetRolePermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" binding:"required"`
}

// SetRolePermissions 设置角色权限
// @Summary 设置角色权限
// @Tags 管理-角色权限
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "角色ID"
// @Param request body SetRolePermissionsRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /admin/system/roles/{id}/permissions [put]
func (h *PermissionHandler) SetRolePermissions(c *gin.Context) {
	id, ok := handler.ParseParamID(c, "id", "角色")
	if !ok {
		return
	}

	var req SetRolePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	if err := h.permissionService.SetRolePermissions(c.Request.Context(), id, req.PermissionIDs); err != nil {
		handleRBACError(c, err)
		return
	}

	response.Success(c, nil)
}

// ==================== 权限管理 ====================

// CreatePermission 创建权限
// @Summary 创建权限
// @Tags 管理-角色权限
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body adminService.CreatePermissionRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /admin/system/permissions [post]
func (h *PermissionHandler) CreatePermission(c *gin.Context) {
	var req adminService.CreatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	permission, err := h.permissionService.CreatePermission(c.Request.Context(), &req)
	if err != nil {
		handleRBACError(c, err)
		return
	}

	response.Success(c, permission)
}

// UpdatePermission 更新权限
// @Summary 更新权限
// @Tags 管理-角色权限
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "权限ID"
// @Param request body adminService.UpdatePermissionRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /admin/system/permissions/{id} [put]
func (h *PermissionHandler) UpdatePermission(c *gin.Context) {
	id, ok := handler.ParseParamID(c, "id", "权限")
	if !ok {
		return
	}

	var req adminService.UpdatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	if err := h.permissionService.UpdatePermission(c.Request.Context(), id, &req); err != nil {
		handleRBACError(c, err)
		return
	}

	response.Success(c, nil)
}

// DeletePermission 删除权限
// @Summary 删除权限
// @Tags 管理-角色权限
// @Produce json
// @Security Bearer
// @Param id path int true "权限ID"
// @Success 200 {object} response.Response
// @Router /admin/system/permissions/{id} [delete]
func (h *PermissionHandler) DeletePermission(c *gin.Context) {
	id, ok := handler.ParseParamID(c, "id", "权限")
	if !ok {
		return
	}

	if err := h.permissionService.DeletePermission(c.Request.Context(), id); err != nil {
		handleRBACError(c, err)
		return
	}

	response.Success(c, nil)
}

// ListPermissionTree 查询权限树
// @Summary 查询权限树
// @Tags 管理-角色权限
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response
// @Router /admin/system/permissions/tree [get]
func (h *PermissionHandler) ListPermissionTree(c *gin.Context) {
	tree, err := h.permissionService.ListPermissionTree(c.Request.Context())
	handler.MustSucceed(c, err, tree)
}

// GetMyMenus 查询当前管理员的菜单
// @Summary 查询当前管理员菜单
// @Tags 管理-角色权限
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response
// @Router /admin/system/menus [get]
func (h *PermissionHandler) GetMyMenus(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	menus, err := h.permissionService.GetAdminMenus(c.Request.Context(), adminID)
	handler.MustSucceed(c, err, menus)
}

// RegisterRoutes 注册角色权限管理路由
// guard 为写操作的权限中间件链，可为空
func (h *PermissionHandler) RegisterRoutes(r *gin.RouterGroup, guard ...gin.HandlerFunc) {
	system := r.Group("/system")
	{
		system.GET("/menus", h.GetMyMenus)

		roles := system.Group("/roles", guard...)
		{
			roles.GET("", h.ListRoles)
			roles.POST("", h.CreateRole)
			roles.GET("/:id", h.GetRole)
			roles.PUT("/:id", h.UpdateRole)
			roles.DELETE("/:id", h.DeleteRole)
			roles.PUT("/:id/permissions", h.SetRolePermissions)
		}

		permissions := system.Group("/permissions", guard...)
		{
			permissions.GET("/tree", h.ListPermissionTree)
			permissions.POST("", h.CreatePermission)
			permissions.PUT("/:id", h.UpdatePermission)
			permissions.DELETE("/:id", h.DeletePermission)
		}
	}
}
