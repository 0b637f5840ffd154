package handler

import (
	"github.com/diaglab/labdesk-api/internal/application/service"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/request"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/response"
	"github.com/gin-gonic/gin"
)

// CatalogHandler handles test categories, tests and packages
type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// ListCategories returns every test category
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Categories retrieved successfully", categories)
}

// GetCategory handles fetching a category
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	category, err := h.catalogService.GetCategory(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Category retrieved successfully", category)
}

// CreateCategory handles creating a category
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req request.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	category, err := h.catalogService.CreateCategory(c.Request.Context(), &service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Category created successfully", category)
}

// UpdateCategory handles editing a category
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	category, err := h.catalogService.UpdateCategory(c.Request.Context(), id, &service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Category updated successfully", category)
}

// DeleteCategory handles deleting a category
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteCategory(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListLabTests handles listing catalog tests
// @Param category_id query string false "Category ID"
// @Param active_only query bool false "Only orderable tests"
func (h *CatalogHandler) ListLabTests(c *gin.Context) {
	var req request.CatalogFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	categoryID, err := optionalUUID("category_id", req.CategoryID)
	if err != nil {
		response.Error(c, err)
		return
	}

	params := pageParams(c)
	tests, total, err := h.catalogService.ListLabTests(c.Request.Context(), &repository.LabTestFilterParams{
		Pagination: params,
		Search:     req.Search,
		CategoryID: categoryID,
		ActiveOnly: req.ActiveOnly,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, "Tests retrieved successfully", tests, params, total)
}

// GetLabTest handles fetching a catalog test
func (h *CatalogHandler) GetLabTest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	test, err := h.catalogService.GetLabTest(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Test retrieved successfully", test)
}

func labTestInput(req request.LabTestRequest) *service.LabTestInput {
	return &service.LabTestInput{
		CategoryID:      req.CategoryID,
		Code:            req.Code,
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		SampleType:      req.SampleType,
		Unit:            req.Unit,
		NormalRange:     req.NormalRange,
		TurnaroundHours: req.TurnaroundHours,
		IsActive:        req.IsActive,
	}
}

// CreateLabTest handles adding a test to the catalog
func (h *CatalogHandler) CreateLabTest(c *gin.Context) {
	var req request.LabTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	test, err := h.catalogService.CreateLabTest(c.Request.Context(), labTestInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Test created successfully", test)
}

// UpdateLabTest handles editing a catalog test
func (h *CatalogHandler) UpdateLabTest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.LabTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	test, err := h.catalogService.UpdateLabTest(c.Request.Context(), id, labTestInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Test updated successfully", test)
}

// DeleteLabTest handles removing a catalog test
func (h *CatalogHandler) DeleteLabTest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteLabTest(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListPackages handles listing test packages
func (h *CatalogHandler) ListPackages(c *gin.Context) {
	params := pageParams(c)
	activeOnly := c.Query("active_only") == "true"
	pkgs, total, err := h.catalogService.ListPackages(c.Request.Context(), params, c.Query("search"), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, "Packages retrieved successfully", pkgs, params, total)
}

// GetPackage handles fetching a test package
func (h *CatalogHandler) GetPackage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	pkg, err := h.catalogService.GetPackage(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Package retrieved successfully", pkg)
}

func packageInput(req request.PackageRequest) *service.PackageInput {
	return &service.PackageInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		TestIDs:     req.TestIDs,
		IsActive:    req.IsActive,
	}
}

// CreatePackage handles creating a test package
func (h *CatalogHandler) CreatePackage(c *gin.Context) {
	var req request.PackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	pkg, err := h.catalogService.CreatePackage(c.Request.Context(), packageInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Package created successfully", pkg)
}

// UpdatePackage handles editing a test package
func (h *CatalogHandler) UpdatePackage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.PackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	pkg, err := h.catalogService.UpdatePackage(c.Request.Context(), id, packageInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Package updated successfully", pkg)
}

// DeletePackage handles deleting a test package
func (h *CatalogHandler) DeletePackage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeletePackage(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
