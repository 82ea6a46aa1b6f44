package controllers

import (
	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/pkg/ctx"
)

type ProductController struct {
	products *services.ProductService
	feedback *services.FeedbackService
}

// Index GET /api/v1/products?category=&search=&page=&limit=
func (pc *ProductController) Index(c *ctx.Context) {
	p := page(c)
	list, total, err := pc.products.List(c.Context(), c.Query("category"), c.Query("search"), p)
	if err != nil {
		fail(c, err)
		return
	}
	paginated(c, list, total, p)
}

func (pc *ProductController) Show(c *ctx.Context) {
	p, err := pc.products.Get(c.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(p)
}

func (pc *ProductController) Store(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := pc.products.Create(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(p)
}

func (pc *ProductController) Update(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := pc.products.Update(c.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(p)
}

// Destroy deletes the product and its batches.
func (pc *ProductController) Destroy(c *ctx.Context) {
	if err := pc.products.Delete(c.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Message("Product deleted")
}

// UploadImage POST /api/v1/admin/products/{id}/images (multipart "image")
func (pc *ProductController) UploadImage(c *ctx.Context) {
	up, done, ok := upload(c, "image")
	if !ok {
		return
	}
	defer done()

	p, err := pc.products.AddImage(c.Context(), c.Param("id"), up)
	if err != nil {
		fail(c, err)
		return
	}
	urls := make([]string, len(p.Images))
	for i, img := range p.Images {
		urls[i] = pc.products.ImageURL(img)
	}
	c.Created(map[string]any{"product": p, "imageUrls": urls})
}

// Feedback lists approved feedback for a product.
func (pc *ProductController) Feedback(c *ctx.Context) {
	p := page(c)
	list, total, err := pc.feedback.ForProduct(c.Context(), c.Param("id"), p)
	if err != nil {
		fail(c, err)
		return
	}
	paginated(c, list, total, p)
}
